package repos

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"totembo/internal/domain"
)

// ErrDuplicate reports a unique constraint violation.
var ErrDuplicate = errors.New("duplicate")

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = `id, username, email, password_hash, role`

func (r *UserRepo) ByUsername(username string) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `SELECT `+userCols+` FROM users WHERE LOWER(username)=LOWER(?)`, username)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ByID(id string) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `SELECT `+userCols+` FROM users WHERE id=?`, id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a user and returns its id. A taken username yields ErrDuplicate.
func (r *UserRepo) Create(username, email, hash, role string) (string, error) {
	id := uuid.NewString()
	_, err := r.DB.Exec(`INSERT INTO users(id,username,email,password_hash,role) VALUES(?,?,?,?,?)`,
		id, username, email, hash, role)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return "", ErrDuplicate
		}
		return "", err
	}
	return id, nil
}

func (r *UserRepo) List() ([]domain.User, error) {
	out := []domain.User{}
	err := r.DB.Select(&out, `SELECT `+userCols+` FROM users ORDER BY LOWER(username)`)
	return out, err
}

func (r *UserRepo) BindSession(sid, userID string) error {
	_, err := r.DB.Exec(`INSERT INTO sessions(id,user_id,last_seen) 
                          VALUES(?,?,CURRENT_TIMESTAMP)
                          ON CONFLICT(id) DO UPDATE SET user_id=excluded.user_id,last_seen=CURRENT_TIMESTAMP`, sid, userID)
	return err
}

func (r *UserRepo) SessionUser(sid string) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `
      SELECT u.id,u.username,u.email,u.password_hash,u.role
      FROM sessions s 
      JOIN users u ON u.id=s.user_id
      WHERE s.id=?`, sid)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) UnbindSession(sid string) error {
	_, err := r.DB.Exec(`UPDATE sessions SET user_id=NULL,last_seen=CURRENT_TIMESTAMP WHERE id=?`, sid)
	return err
}

// DeleteUserCascade returns the stock held by the user's cart, cancels it and
// deletes the user with sessions. Paid orders stay for audit (customer kept, user unlinked).
func (r *UserRepo) DeleteUserCascade(userID string) error {
	return WithTx(r.DB, func(tx *sqlx.Tx) error {
		openOrders := `SELECT o.id FROM orders o JOIN customers c ON c.id = o.customer_id
		               WHERE c.user_id = ? AND o.status = 'OPEN'`

		if _, err := tx.Exec(`
			UPDATE products SET quantity = quantity + (
			  SELECT COALESCE(SUM(op.quantity),0) FROM order_products op
			  WHERE op.product_id = products.id AND op.order_id IN (`+openOrders+`))
			WHERE id IN (SELECT product_id FROM order_products WHERE order_id IN (`+openOrders+`))
		`, userID, userID); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM order_products WHERE order_id IN (`+openOrders+`)`, userID); err != nil {
			return err
		}
		if _, err := tx.Exec(`UPDATE orders SET status='CANCELED', updated_at=CURRENT_TIMESTAMP WHERE id IN (`+openOrders+`)`, userID); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM sessions WHERE user_id=?`, userID); err != nil {
			return err
		}
		res, err := tx.Exec(`DELETE FROM users WHERE id=?`, userID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}
