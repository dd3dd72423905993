package domain

// Profile содержит данные профиля, полученные от OAuth провайдера
type Profile struct {
	Username          string // user_name / login
	PreferredUsername string
	Email             string
	DisplayName       string
	AvatarURL         string
}

// Identity результат успешной аутентификации у провайдера
type Identity struct {
	SubjectID string
	Profile   Profile
}
