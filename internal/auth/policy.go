package auth

import "github.com/VitaminP8/blogexpress/internal/apperr"

type Action string

const (
	// ActionRead - чтение одного ресурса; private ресурс требует аутентификации
	ActionRead Action = "read"
	// ActionList - чтение всей коллекции (getAllPosts)
	ActionList Action = "list"
	// ActionModify - изменение ресурса, разрешено только владельцу
	ActionModify Action = "modify"
	// ActionDelete - удаление, разрешено владельцу или администратору
	ActionDelete Action = "delete"
	// ActionManageRoles - смена роли другого пользователя, только администратор
	ActionManageRoles Action = "manage_roles"
)

// Resource описывает то, над чем выполняется действие.
type Resource struct {
	OwnerID string
	Private bool
	// DenyMessage заменяет стандартное сообщение об отказе
	DenyMessage string
}

// Authorize - единая проверка доступа для всех операций. Возвращает nil, если действие разрешено.
func Authorize(actor Identity, res Resource, action Action) error {
	switch action {
	case ActionRead:
		if res.Private && !actor.IsAuth {
			return apperr.Unauthenticated()
		}
		return nil

	case ActionList:
		if !actor.IsAdmin() && !actor.IsAuth {
			return deny(res, "You do not have access to all posts!")
		}
		return nil
	}

	if !actor.IsAuth {
		return apperr.Unauthenticated()
	}

	switch action {
	case ActionModify:
		if res.OwnerID != actor.UserID {
			return deny(res, "Not authorized!")
		}
	case ActionDelete:
		if !actor.IsAdmin() && res.OwnerID != actor.UserID {
			return deny(res, "Not authorized!")
		}
	case ActionManageRoles:
		if !actor.IsAdmin() {
			return deny(res, "Not authorized!")
		}
	default:
		return deny(res, "Not authorized!")
	}
	return nil
}

// RequireAuth - короткая форма для операций без ресурса.
func RequireAuth(actor Identity) error {
	if !actor.IsAuth {
		return apperr.Unauthenticated()
	}
	return nil
}

func deny(res Resource, fallback string) error {
	if res.DenyMessage != "" {
		return apperr.Unauthorized(res.DenyMessage)
	}
	return apperr.Unauthorized(fallback)
}
