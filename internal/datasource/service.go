package datasource

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("datasource not found")

// Metadata describes one configured datasource.
type Metadata struct {
	Name           string
	Connector      string
	ResultLocation string
	AllowedRoles   []string
	Properties     map[string]string
}

// PropertyKeys returns the property names in a stable order.
func (m Metadata) PropertyKeys() []string {
	keys := make([]string, 0, len(m.Properties))
	for key := range m.Properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Service resolves datasource names to their configured metadata.
type Service interface {
	Raw(ctx context.Context, name string) (Metadata, error)
}

type postgresService struct {
	db *sql.DB
}

func NewService(db *sql.DB) Service {
	return &postgresService{db: db}
}

func (s *postgresService) Raw(ctx context.Context, name string) (Metadata, error) {
	const query = `
		SELECT name, connector, result_location, allowed_roles, properties
		FROM datasources
		WHERE name = $1`

	var meta Metadata
	var roles pq.StringArray
	var properties []byte
	err := s.db.QueryRowContext(ctx, query, name).Scan(
		&meta.Name,
		&meta.Connector,
		&meta.ResultLocation,
		&roles,
		&properties,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Metadata{}, errors.Wrapf(ErrNotFound, "%s", name)
		}
		return Metadata{}, err
	}
	meta.AllowedRoles = roles
	if len(properties) > 0 {
		if err := json.Unmarshal(properties, &meta.Properties); err != nil {
			return Metadata{}, errors.Wrapf(err, "decode properties for datasource %s", name)
		}
	}
	return meta, nil
}
