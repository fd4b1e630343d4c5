package repos

import (
	"github.com/jmoiron/sqlx"

	"totembo/internal/domain"
)

type FavouriteRepo struct{ db *sqlx.DB }

func NewFavouriteRepo(db *sqlx.DB) *FavouriteRepo { return &FavouriteRepo{db: db} }

func (r *FavouriteRepo) Exists(userID, productID string) (bool, error) {
	var n int
	err := r.db.Get(&n, `SELECT COUNT(*) FROM favourite_products WHERE user_id=? AND product_id=?`, userID, productID)
	return n > 0, err
}

// Toggle removes the pair when present and adds it otherwise.
// added reports the resulting state.
func (r *FavouriteRepo) Toggle(userID, productID string) (added bool, err error) {
	err = WithTx(r.db, func(tx *sqlx.Tx) error {
		res, err := tx.Exec(`DELETE FROM favourite_products WHERE user_id=? AND product_id=?`, userID, productID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}
		added = true
		_, err = tx.Exec(`
		  INSERT INTO favourite_products(user_id, product_id, created_at)
		  VALUES(?, ?, CURRENT_TIMESTAMP)
		`, userID, productID)
		return err
	})
	return added, err
}

func (r *FavouriteRepo) List(userID string) ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.db.Select(&out, `
	  SELECT `+productCols+`
	  FROM favourite_products f
	  JOIN products p ON p.id = f.product_id
	  WHERE f.user_id = ?
	  ORDER BY f.created_at DESC, p.title
	`, userID)
	return out, err
}
