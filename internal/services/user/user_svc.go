package user

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

const pgUniqueViolation = "23505"

type UserDTO struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

var (
	ErrUsernameTaken      = errors.New("username already registered")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUserNotFound       = errors.New("user not found")
)

type IUserService interface {
	Register(ctx context.Context, username, password string) (*UserDTO, error)
	Login(ctx context.Context, username, password string) (token string, err error)
	// VerifyToken returns the username a valid bearer token was issued to.
	VerifyToken(token string) (string, error)
	GetByUsername(ctx context.Context, username string) (*UserDTO, error)
}

type userService struct {
	db       *sql.DB
	secret   []byte
	tokenTTL time.Duration
}

func NewUserService(db *sql.DB, secret string, tokenTTL time.Duration) IUserService {
	return &userService{
		db:       db,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
	}
}

func (svc *userService) Register(ctx context.Context, username, password string) (*UserDTO, error) {
	var exists bool
	err := svc.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUsernameTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	dto := &UserDTO{Username: username}
	err = svc.db.QueryRowContext(ctx,
		`INSERT INTO users (username, hashed_password) VALUES ($1, $2) RETURNING id`,
		username, string(hashed)).Scan(&dto.ID)
	if err != nil {
		// A concurrent registration can slip past the EXISTS check; the
		// unique index on username is the authoritative guard.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return dto, nil
}

func (svc *userService) Login(ctx context.Context, username, password string) (string, error) {
	var hashed string
	err := svc.db.QueryRowContext(ctx,
		`SELECT hashed_password FROM users WHERE username = $1`, username).Scan(&hashed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	claims := jwt.RegisteredClaims{
		Subject:   username,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(svc.tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(svc.secret)
}

func (svc *userService) VerifyToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) { return svc.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (svc *userService) GetByUsername(ctx context.Context, username string) (*UserDTO, error) {
	dto := &UserDTO{}
	err := svc.db.QueryRowContext(ctx,
		`SELECT id, username FROM users WHERE username = $1`, username).
		Scan(&dto.ID, &dto.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return dto, nil
}
