package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/glintql/dispatch-api/internal/models"
)

type UserRepository interface {
	CreateUser(email, password string, roles []models.UserRole) (models.User, error)
	AuthenticateUser(email, password string) (models.User, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (u *userRepository) CreateUser(email, password string, roles []models.UserRole) (models.User, error) {
	if len(roles) == 0 {
		roles = []models.UserRole{models.RoleViewer}
	}
	if !models.IsValidRoleList(roles) {
		return models.User{}, errors.New("invalid roles")
	}
	normalized := models.EnsureDefaultRole(models.NormalizeRoles(roles))

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		Email:        strings.TrimSpace(email),
		PasswordHash: string(hash),
		IsActive:     true,
		Roles:        normalized,
	}

	const query = `
		INSERT INTO users (email, password_hash, is_active, roles)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	err = u.db.QueryRow(query, user.Email, user.PasswordHash, user.IsActive, pq.Array(toStringSlice(user.Roles))).Scan(&user.ID)
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (u *userRepository) AuthenticateUser(email, password string) (models.User, error) {
	var user models.User
	var roles pq.StringArray

	const query = `
		SELECT id, email, password_hash, is_active, roles
		FROM users
		WHERE email = $1`
	err := u.db.QueryRow(query, email).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.IsActive,
		&roles,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, errors.New("invalid credentials")
		}
		return models.User{}, err
	}

	user.Roles = models.EnsureDefaultRole(models.NormalizeRoles(toUserRoleSlice(roles)))
	if !models.IsValidRoleList(user.Roles) {
		return models.User{}, errors.New("user has invalid roles")
	}
	if !user.IsActive {
		return models.User{}, errors.New("user is inactive")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, errors.New("invalid credentials")
	}
	return user, nil
}

func toStringSlice(roles []models.UserRole) []string {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		out = append(out, string(role))
	}
	return out
}

func toUserRoleSlice(roles []string) []models.UserRole {
	out := make([]models.UserRole, 0, len(roles))
	for _, role := range roles {
		out = append(out, models.UserRole(role))
	}
	return out
}
