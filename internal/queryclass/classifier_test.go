package queryclass

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsIndexQuery(t *testing.T) {
	classifier := Default{}

	indexQueries := []string{
		"CREATE SKIPPING INDEX ON db.tbl (col1 VALUE_SET)",
		"create skipping index on db.tbl (col1 MIN_MAX) WITH (auto_refresh = true)",
		"CREATE INDEX cov_idx ON glue.db.tbl (col1, col2)",
		"DROP SKIPPING INDEX ON db.tbl",
		"DROP INDEX cov_idx ON db.tbl",
		"  drop index cov_idx on db.tbl  ",
	}
	for _, q := range indexQueries {
		assert.True(t, classifier.IsIndexQuery(q), "query %q", q)
	}

	plainQueries := []string{
		"SELECT * FROM db.tbl",
		"SELECT 'CREATE INDEX' FROM db.tbl",
		"SHOW TABLES",
		"DROP TABLE db.tbl",
		"",
	}
	for _, q := range plainQueries {
		assert.False(t, classifier.IsIndexQuery(q), "query %q", q)
	}
}

func TestExtract(t *testing.T) {
	classifier := Default{}

	cases := []struct {
		name  string
		query string
		want  IndexDetails
	}{
		{
			name:  "create skipping",
			query: "CREATE SKIPPING INDEX ON db.tbl (col1 VALUE_SET)",
			want:  IndexDetails{Table: FullyQualifiedTableName{Schema: "db", Table: "tbl"}},
		},
		{
			name:  "create skipping auto refresh",
			query: "CREATE SKIPPING INDEX ON db.tbl (col1 VALUE_SET) WITH (auto_refresh = true)",
			want: IndexDetails{
				Table:       FullyQualifiedTableName{Schema: "db", Table: "tbl"},
				AutoRefresh: true,
			},
		},
		{
			name:  "create covering auto refresh false",
			query: "CREATE INDEX cov_idx ON db.tbl (col1) WITH (auto_refresh = false)",
			want: IndexDetails{
				IndexName: "cov_idx",
				Table:     FullyQualifiedTableName{Schema: "db", Table: "tbl"},
			},
		},
		{
			name:  "create covering three part name",
			query: "CREATE INDEX cov_idx ON glue.db.tbl (col1) WITH (auto_refresh=TRUE)",
			want: IndexDetails{
				IndexName:   "cov_idx",
				Table:       FullyQualifiedTableName{Datasource: "glue", Schema: "db", Table: "tbl"},
				AutoRefresh: true,
			},
		},
		{
			name:  "drop skipping",
			query: "DROP SKIPPING INDEX ON db.tbl",
			want: IndexDetails{
				Table: FullyQualifiedTableName{Schema: "db", Table: "tbl"},
				Drop:  true,
			},
		},
		{
			name:  "drop covering",
			query: "DROP INDEX cov_idx ON tbl",
			want: IndexDetails{
				IndexName: "cov_idx",
				Table:     FullyQualifiedTableName{Table: "tbl"},
				Drop:      true,
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := classifier.Extract(tc.query)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExtractRejectsPlainQuery(t *testing.T) {
	_, err := Default{}.Extract("SELECT * FROM db.tbl")
	assert.Error(t, err)
}

func TestParseFQTN(t *testing.T) {
	assert.Equal(t, FullyQualifiedTableName{Table: "tbl"}, parseFQTN("tbl"))
	assert.Equal(t, FullyQualifiedTableName{Schema: "db", Table: "tbl"}, parseFQTN("db.tbl"))
	assert.Equal(t, FullyQualifiedTableName{Datasource: "glue", Schema: "db", Table: "tbl"}, parseFQTN("glue.db.tbl"))
	// Extra parts stay with the table name.
	assert.Equal(t, FullyQualifiedTableName{Datasource: "a", Schema: "b", Table: "c.d"}, parseFQTN("a.b.c.d"))
}

func TestStoreIndexName(t *testing.T) {
	skipping := IndexDetails{Table: FullyQualifiedTableName{Schema: "db", Table: "tbl"}}
	assert.Equal(t, "glint_db_tbl_skipping_index", skipping.StoreIndexName())

	covering := IndexDetails{
		IndexName: "Cov_Idx",
		Table:     FullyQualifiedTableName{Datasource: "Glue", Schema: "DB", Table: "Tbl"},
	}
	assert.Equal(t, "glint_glue_db_tbl_cov_idx_index", covering.StoreIndexName())

	bare := IndexDetails{Table: FullyQualifiedTableName{Table: "tbl"}}
	assert.Equal(t, "glint_tbl_skipping_index", bare.StoreIndexName())
}
