// Package auth autentica a los operadores del API y emite tokens JWT.
package auth

import (
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/custodia-api/internal/application/dto"
	"github.com/jhoicas/custodia-api/internal/domain"
	"github.com/jhoicas/custodia-api/pkg/jwt"
)

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// Operator credencial de un operador (hash bcrypt).
type Operator struct {
	Username     string
	Role         string
	PasswordHash string
}

// AuthUseCase login de operadores configurados.
type AuthUseCase struct {
	operators map[string]Operator
	jwtCfg    JWTConfig
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(operators []Operator, jwtCfg JWTConfig) *AuthUseCase {
	m := make(map[string]Operator, len(operators))
	for _, op := range operators {
		m[strings.ToLower(op.Username)] = op
	}
	return &AuthUseCase{operators: m, jwtCfg: jwtCfg}
}

// Login verifica usuario/password y genera el JWT. Usuario inexistente y password
// incorrecta devuelven el mismo error.
func (uc *AuthUseCase) Login(in dto.LoginRequest) (*dto.LoginResponse, error) {
	op, ok := uc.operators[strings.ToLower(strings.TrimSpace(in.Username))]
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	token, err := jwt.Generate(uc.jwtCfg.Secret, op.Username, op.Role, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		Token:     token,
		Username:  op.Username,
		Role:      op.Role,
		ExpiresIn: uc.jwtCfg.ExpMinutes * 60,
	}, nil
}

// HashPassword genera el hash bcrypt para AUTH_OPERATORS.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", domain.NewValidationError("password", "obligatorio")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
