// Package policy - единый слой правил доступа и видимости данных.
//
// Здесь собраны правила, которые иначе дублировались бы по экранам:
// какие роли допускаются в какие разделы портала, куда перенаправлять
// пользователя с чужой ролью и каких наставников видит ученик.
package policy

import (
	"slices"

	"github.com/magabrotheeeer/speakup/internal/models"
)

const (
	// LoginPath - точка входа для неаутентифицированных пользователей.
	LoginPath = "/login"
	// LearnerArea - раздел ученика.
	LearnerArea = "/learner"
	// MentorArea - раздел наставника.
	MentorArea = "/mentor"
	// AdminArea - раздел администратора.
	AdminArea = "/admin"
)

// Landing возвращает раздел по умолчанию для роли.
// Для неизвестной роли возвращается страница входа.
func Landing(role models.Role) string {
	switch role {
	case models.RoleLearner:
		return LearnerArea
	case models.RoleMentor:
		return MentorArea
	case models.RoleAdmin:
		return AdminArea
	}
	return LoginPath
}

// CanAccess сообщает, допускается ли роль в раздел с требуемым набором ролей.
// Пустой набор означает «любой аутентифицированный пользователь».
func CanAccess(role models.Role, required []models.Role) bool {
	if !role.Valid() {
		return false
	}
	if len(required) == 0 {
		return true
	}
	return slices.Contains(required, role)
}

// MentorQuery возвращает фильтр, который следует отправить бэкенду от имени роли.
// Ученику всегда запрашиваются только проверенные наставники, какой бы фильтр ни пришёл.
func MentorQuery(viewer models.Role, f models.MentorFilter) models.MentorFilter {
	if viewer != models.RoleAdmin {
		f.Status = models.VerificationVerified
	}
	return f
}

// MentorVisible сообщает, может ли роль видеть наставника.
func MentorVisible(viewer models.Role, m models.MentorProfile) bool {
	if viewer == models.RoleAdmin {
		return true
	}
	return m.Verification == models.VerificationVerified
}

// VisibleMentors отбрасывает наставников, которых роль видеть не должна.
// Применяется к ответу бэкенда независимо от того, отфильтровал ли он выдачу сам.
func VisibleMentors(viewer models.Role, mentors []models.MentorProfile) []models.MentorProfile {
	out := make([]models.MentorProfile, 0, len(mentors))
	for _, m := range mentors {
		if MentorVisible(viewer, m) {
			out = append(out, m)
		}
	}
	return out
}
