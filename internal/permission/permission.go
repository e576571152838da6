// Package permission определяет права сотрудников на записи бюджета комплектования.
package permission

import (
	"slices"

	"github.com/mmeshcher/acquisitions/internal/model"
)

// Action обозначает действие над записью.
type Action string

const (
	ActionList   Action = "list"
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

func (a Action) mutates() bool {
	return a == ActionCreate || a == ActionUpdate || a == ActionDelete
}

// Role задаёт закрытое объединение ролей пользователя.
type Role interface {
	isRole()
}

// Anonymous обозначает неаутентифицированного пользователя.
type Anonymous struct{}

// Patron обозначает читателя библиотеки.
type Patron struct {
	OrganisationID string
}

// Librarian управляет записями своих библиотек и читает записи своей организации.
type Librarian struct {
	OrganisationID string
	Libraries      []string
}

// SystemLibrarian управляет записями любой библиотеки своей организации.
type SystemLibrarian struct {
	OrganisationID string
}

// Admin обозначает администратора платформы; только он управляет бюджетами.
type Admin struct{}

func (Anonymous) isRole()       {}
func (Patron) isRole()          {}
func (Librarian) isRole()       {}
func (SystemLibrarian) isRole() {}
func (Admin) isRole()           {}

// Actor описывает пользователя, от имени которого выполняется операция.
type Actor struct {
	UserID string
	Role   Role
}

// IsAnonymous сообщает, что пользователь не аутентифицирован.
func (a Actor) IsAnonymous() bool {
	if a.Role == nil {
		return true
	}
	_, ok := a.Role.(Anonymous)
	return ok
}

// Resource описывает проверяемую запись.
type Resource struct {
	Kind           model.Kind
	ID             string
	OrganisationID string
	LibraryID      string
}

// Can проверяет, может ли пользователь выполнить действие над записью.
func Can(actor Actor, action Action, res Resource) bool {
	switch role := actor.Role.(type) {
	case Admin:
		return true
	case Librarian:
		if res.OrganisationID != role.OrganisationID {
			return false
		}
		if !action.mutates() {
			return true
		}
		if res.Kind == model.KindBudget {
			return false
		}
		return res.LibraryID != "" && slices.Contains(role.Libraries, res.LibraryID)
	case SystemLibrarian:
		if res.OrganisationID != role.OrganisationID {
			return false
		}
		if action.mutates() && res.Kind == model.KindBudget {
			return false
		}
		return true
	default:
		// Anonymous, Patron и неизвестные роли.
		return false
	}
}

// Check возвращает PermissionDeniedError, если действие запрещено.
func Check(actor Actor, action Action, res Resource) error {
	if Can(actor, action, res) {
		return nil
	}
	return &model.PermissionDeniedError{
		Action:    string(action),
		Kind:      res.Kind,
		ID:        res.ID,
		Anonymous: actor.IsAnonymous(),
	}
}
