package service

import "errors"

// Ошибки доменного уровня. Хендлеры сопоставляют их с HTTP-кодами через
// errors.Is, сервисы оборачивают с контекстом через fmt.Errorf и %w.
// Ошибки классификатора (сбой вызова / неразбираемый ответ) объявлены
// в пакете classifier рядом с его контрактом.
var (
	// ErrIdentityResolution - не удалось ни найти, ни создать личность репортера
	ErrIdentityResolution = errors.New("identity resolution failed")

	// ErrValidation - отсутствуют или некорректны обязательные поля запроса
	ErrValidation = errors.New("validation failed")

	// ErrRoleNotAllowed - роль не имеет права на запрошенное действие
	ErrRoleNotAllowed = errors.New("role is not allowed to perform this action")

	// ErrInvalidTransition - инцидент уже не в статусе pending
	ErrInvalidTransition = errors.New("incident is not in pending status")

	// ErrInvalidCategory - категория вне фиксированного набора, никогда не
	// приводится молча и не сохраняется как свободный текст
	ErrInvalidCategory = errors.New("category is not one of the allowed values")

	// ErrIncidentNotFound - инцидент с таким id не существует
	ErrIncidentNotFound = errors.New("incident not found")
)
