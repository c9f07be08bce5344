// Package jwt выпускает и проверяет токены доступа sandbox-бэкенда.
//
// Для портала токен непрозрачен: он лишь хранит его и передаёт в заголовке
// Authorization. Разбирает токен только сам бэкенд.
package jwt

import (
	"time"

	"github.com/magabrotheeeer/speakup/internal/models"
)

// Maker описывает интерфейс для генерации и парсинга JWT токенов.
type Maker interface {
	GenerateToken(userID int64, role models.Role) (string, error)
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl реализует Maker с секретным ключом HMAC и временем жизни токена.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
}

// NewJWTMaker создаёт MakerImpl на основе секретного ключа и TTL.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
	}
}
