package domain

import "time"

// Transaction представляет неизменяемую запись о начислении или списании очков
type Transaction struct {
	ID          string    `json:"id"`
	MemberID    string    `json:"member_id"`   // Получатель
	GivenByID   string    `json:"given_by_id"` // Кто начислил
	Amount      int       `json:"amount"`      // Всегда отличается от нуля
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// TransactionView представляет транзакцию вместе с данными получателя и автора начисления
type TransactionView struct {
	Transaction
	MemberName      string `json:"member_name"`
	MemberAvatarURL string `json:"member_avatar_url,omitempty"`
	GivenByName     string `json:"given_by_name"`
	GivenByRole     Role   `json:"given_by_role"`
}
