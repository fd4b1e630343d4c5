package repos

import (
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	applog "totembo/internal/log"
)

// seedCatalog inserts the demo catalog. Safe to run on every startup (idempotent).
func seedCatalog(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM categories`); err != nil {
		return err
	}
	if n == 0 {
		applog.Printf("[seed] inserting demo categories/products/gallery")
	}

	return WithTx(db, func(tx *sqlx.Tx) error {
		stmts := []string{
			`INSERT INTO categories(id,title,slug,image,parent_id) VALUES
			  ('c-watches','Watches','watches','categories/watches.jpg',NULL),
			  ('c-accessories','Accessories','accessories','categories/accessories.jpg',NULL)
			 ON CONFLICT(id) DO NOTHING`,
			`INSERT INTO categories(id,title,slug,image,parent_id) VALUES
			  ('c-mechanical','Mechanical watches','mechanical','categories/mechanical.jpg','c-watches'),
			  ('c-smart','Smart watches','smart',NULL,'c-watches'),
			  ('c-straps','Straps','straps',NULL,'c-accessories')
			 ON CONFLICT(id) DO NOTHING`,
			`INSERT INTO products(id,title,price,quantity,description,category_id,slug,size,color,created_at) VALUES
			  ('p-seiko-5','Seiko 5 Sports',289.00,8,'Automatic diver-style watch with day-date.','c-mechanical','seiko-5-sports',42,'steel','2024-01-01 10:00:00'),
			  ('p-orient-bambino','Orient Bambino',165.50,3,'Classic dress watch with domed crystal.','c-mechanical','orient-bambino',40,'silver','2024-01-02 10:00:00'),
			  ('p-tissot-prx','Tissot PRX Powermatic 80',725.00,0,'Integrated bracelet, 80 hour power reserve.','c-mechanical','tissot-prx',40,'steel','2024-01-03 10:00:00'),
			  ('p-apple-watch-se','Apple Watch SE',249.00,12,'Fitness tracking and notifications.','c-smart','apple-watch-se',44,'midnight','2024-01-04 10:00:00'),
			  ('p-garmin-venu-2','Garmin Venu 2',399.99,5,'AMOLED GPS smartwatch.','c-smart','garmin-venu-2',45,'black','2024-01-05 10:00:00'),
			  ('p-nato-strap','Nylon NATO Strap',19.90,40,'Soon...!','c-straps','nylon-nato-strap',20,'black','2024-01-06 10:00:00')
			 ON CONFLICT(id) DO NOTHING`,
			`INSERT INTO gallery(id,product_id,image) VALUES
			  ('g-seiko-1','p-seiko-5','products/seiko-5-sports/main.jpg'),
			  ('g-seiko-2','p-seiko-5','products/seiko-5-sports/side.jpg'),
			  ('g-orient-1','p-orient-bambino','products/orient-bambino/main.jpg'),
			  ('g-apple-1','p-apple-watch-se','products/apple-watch-se/main.jpg')
			 ON CONFLICT(id) DO NOTHING`,
		}
		for _, s := range stmts {
			if _, err := tx.Exec(s); err != nil {
				return err
			}
		}
		return nil
	})
}

// seedUsers ensures two USERs and one ADMIN exist (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		ID, Username, Email, Role, Hash string
	}
	mk := func(id, username, email, role, raw string) u {
		h, _ := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
		return u{ID: id, Username: username, Email: email, Role: role, Hash: string(h)}
	}

	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM users WHERE id IN ('u-alice','u-bob','u-admin')`); err != nil {
		return err
	}
	if n == 3 {
		return nil
	}

	users := []u{
		mk("u-alice", "alice", "alice@totembo.test", "USER", "Passw0rd!"),
		mk("u-bob", "bob", "bob@totembo.test", "USER", "Passw0rd!"),
		mk("u-admin", "admin", "admin@totembo.test", "ADMIN", "Passw0rd!"),
	}

	return WithTx(db, func(tx *sqlx.Tx) error {
		for _, x := range users {
			if _, err := tx.Exec(`
				INSERT INTO users(id,username,email,password_hash,role)
				VALUES(?,?,?,?,?)
				ON CONFLICT(id) DO NOTHING
			`, x.ID, x.Username, x.Email, x.Hash, x.Role); err != nil {
				return err
			}
		}
		return nil
	})
}
