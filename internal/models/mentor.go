package models

import (
	"fmt"
	"strings"
)

// VerificationStatus — статус проверки наставника администратором.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationRejected VerificationStatus = "REJECTED"
)

// VerificationAction — действие администратора над статусом проверки.
type VerificationAction string

const (
	ActionVerify   VerificationAction = "verify"
	ActionUnverify VerificationAction = "unverify"
	ActionReject   VerificationAction = "reject"
)

// Apply возвращает статус после действия администратора.
//
//	PENDING  --verify-->   VERIFIED
//	PENDING  --reject-->   REJECTED
//	VERIFIED --unverify--> PENDING
func (s VerificationStatus) Apply(a VerificationAction) (VerificationStatus, error) {
	switch {
	case s == VerificationPending && a == ActionVerify:
		return VerificationVerified, nil
	case s == VerificationPending && a == ActionReject:
		return VerificationRejected, nil
	case s == VerificationVerified && a == ActionUnverify:
		return VerificationPending, nil
	}
	return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, a, s)
}

// MentorProfile — публичный профиль наставника.
// Skills хранится строкой через запятую, как его присылает бэкенд.
type MentorProfile struct {
	MentorID     int64              `json:"mentor_id"`
	DisplayName  string             `json:"display_name"`
	Bio          string             `json:"bio"`
	Skills       string             `json:"skills"`
	Verification VerificationStatus `json:"verification_status"`
}

// SkillList разбивает Skills на отдельные навыки без пустых элементов.
func (p MentorProfile) SkillList() []string {
	var out []string
	for _, s := range strings.Split(p.Skills, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// HasSkill сообщает, есть ли у наставника навык (без учёта регистра).
func (p MentorProfile) HasSkill(skill string) bool {
	skill = strings.TrimSpace(skill)
	if skill == "" {
		return true
	}
	for _, s := range p.SkillList() {
		if strings.EqualFold(s, skill) {
			return true
		}
	}
	return false
}

// ProfileUpdate — данные, которые наставник может изменить в своём профиле.
type ProfileUpdate struct {
	DisplayName string `json:"display_name" validate:"required,max=120"`
	Bio         string `json:"bio" validate:"max=4000"`
	Skills      string `json:"skills" validate:"max=500"`
}

// MentorFilter — фильтр выдачи наставников.
type MentorFilter struct {
	Skill  string             `json:"skill,omitempty"`
	Status VerificationStatus `json:"status,omitempty"`
}
