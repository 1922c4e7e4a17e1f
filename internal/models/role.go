package models

// Role - роль действующего принципала, приходит из слоя аутентификации
// как доверенный вход
type Role string

const (
	RoleReporter   Role = "reporter"
	RoleVerifier   Role = "verifier"
	RoleGovernment Role = "government"
)
