package service

import "github.com/mangrovewatch/mangrove_guardian/internal/models"

// Action - действие над инцидентом, на которое проверяются права роли
type Action string

const (
	ActionVerify Action = "verify"
	ActionReject Action = "reject"
	ActionList   Action = "list"
	ActionGet    Action = "get"
)

// TargetStatus возвращает терминальный статус для действия перехода
func (a Action) TargetStatus() (models.Status, bool) {
	switch a {
	case ActionVerify:
		return models.StatusVerified, true
	case ActionReject:
		return models.StatusRejected, true
	}
	return "", false
}

// Единая таблица прав (действие, роль) вместо разрозненных проверок
// по обработчикам. Репортеры не читают чужие инциденты, только свой баланс.
var allowedRoles = map[Action]map[models.Role]bool{
	ActionVerify: {models.RoleVerifier: true},
	ActionReject: {models.RoleVerifier: true},
	ActionList:   {models.RoleVerifier: true, models.RoleGovernment: true},
	ActionGet:    {models.RoleVerifier: true, models.RoleGovernment: true},
}

// roleAllowed проверяет право роли на действие по таблице
func roleAllowed(action Action, role models.Role) bool {
	return allowedRoles[action][role]
}
