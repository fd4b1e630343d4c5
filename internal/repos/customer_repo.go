package repos

import (
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"totembo/internal/domain"
)

type CustomerRepo struct{ db *sqlx.DB }

func NewCustomerRepo(db *sqlx.DB) *CustomerRepo { return &CustomerRepo{db: db} }

const customerCols = `id, COALESCE(user_id,'') AS user_id, first_name, last_name`

// Ensure returns the user's customer record, creating it on first use.
func (r *CustomerRepo) Ensure(q DBTX, userID string) (domain.Customer, error) {
	if _, err := q.Exec(`
	  INSERT INTO customers(id, user_id) VALUES(?, ?)
	  ON CONFLICT(user_id) DO NOTHING
	`, uuid.NewString(), userID); err != nil {
		return domain.Customer{}, err
	}
	var c domain.Customer
	err := q.Get(&c, `SELECT `+customerCols+` FROM customers WHERE user_id = ?`, userID)
	return c, err
}

func (r *CustomerRepo) ByUser(userID string) (domain.Customer, error) {
	var c domain.Customer
	err := r.db.Get(&c, `SELECT `+customerCols+` FROM customers WHERE user_id = ?`, userID)
	return c, err
}

func (r *CustomerRepo) UpdateNames(q DBTX, customerID, first, last string) error {
	_, err := q.Exec(`UPDATE customers SET first_name=?, last_name=? WHERE id=?`, first, last, customerID)
	return err
}
