package repos

import (
	"log"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite has a single writer; one connection serialises lifecycle
	// operations and keeps :memory: databases on one handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err = db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Seed baseline data if DB is empty (categories/items)
	if err := seedUsers(db); err != nil {
		return nil, err
	}
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}

	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
-- Categories
CREATE TABLE IF NOT EXISTS categories(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_name_nocase ON categories(LOWER(name));

-- Users & Sessions
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('USER','ADMIN')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- same value as the 'sid' cookie
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

-- Items (money columns are TEXT to keep decimal precision)
CREATE TABLE IF NOT EXISTS items(
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  category_id TEXT NULL REFERENCES categories(id) ON DELETE SET NULL,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  availability_mode TEXT NOT NULL CHECK (availability_mode IN ('lend','sell','both')),
  price TEXT NULL,
  lending_duration_days INTEGER NOT NULL DEFAULT 7 CHECK (lending_duration_days > 0),
  status TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available','reserved','borrowed','sold')),
  pickup_location TEXT NOT NULL DEFAULT '',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT,
  CHECK (availability_mode = 'lend' OR price IS NOT NULL)
);
CREATE INDEX IF NOT EXISTS idx_items_owner      ON items(owner_id);
CREATE INDEX IF NOT EXISTS idx_items_category   ON items(category_id);
CREATE INDEX IF NOT EXISTS idx_items_title      ON items(LOWER(title));
CREATE INDEX IF NOT EXISTS idx_items_status     ON items(status);
CREATE INDEX IF NOT EXISTS idx_items_created_at ON items(created_at);

-- Transactions
CREATE TABLE IF NOT EXISTS transactions(
  id TEXT PRIMARY KEY,
  item_id TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
  borrower_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  type TEXT NOT NULL CHECK (type IN ('lend','sell')),
  start_date TEXT NOT NULL,
  due_date TEXT NULL,
  return_date TEXT NULL,
  deposit_amount TEXT NULL,
  final_price TEXT NULL,
  status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','active','completed','late','cancelled')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT,
  CHECK (type <> 'lend' OR due_date IS NOT NULL),
  CHECK (type <> 'sell' OR final_price IS NOT NULL)
);
-- at most one open transaction per item
CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_one_open
  ON transactions(item_id) WHERE status IN ('pending','active','late');
CREATE INDEX IF NOT EXISTS idx_transactions_item     ON transactions(item_id);
CREATE INDEX IF NOT EXISTS idx_transactions_borrower ON transactions(borrower_id, status);

-- Penalties (1:1 with a late lend)
CREATE TABLE IF NOT EXISTS penalties(
  id TEXT PRIMARY KEY,
  transaction_id TEXT NOT NULL UNIQUE REFERENCES transactions(id) ON DELETE CASCADE,
  days_late INTEGER NOT NULL CHECK (days_late > 0),
  amount TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','paid','waived')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  resolved_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_penalties_status ON penalties(status);

-- Ratings
CREATE TABLE IF NOT EXISTS ratings(
  id TEXT PRIMARY KEY,
  transaction_id TEXT NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
  rater_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  ratee_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
  comment TEXT NOT NULL DEFAULT '',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  UNIQUE (transaction_id, rater_id)
);
CREATE INDEX IF NOT EXISTS idx_ratings_ratee ON ratings(ratee_id);

-- Saved items
CREATE TABLE IF NOT EXISTS saved_items(
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  item_id TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
  created_at TEXT,
  PRIMARY KEY (user_id, item_id)
);
`
	_, err := db.Exec(schema)
	return err
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM categories`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo categories/items")

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	tx.MustExec(`INSERT INTO categories(id,name) VALUES
	  ('textbooks','Textbooks'),
	  ('electronics','Electronics'),
	  ('lab-gear','Lab Gear'),
	  ('furniture','Dorm Furniture'),
	  ('sports','Sports & Outdoors')`)

	tx.MustExec(`INSERT INTO items(id,owner_id,category_id,title,description,availability_mode,price,lending_duration_days,pickup_location) VALUES
	  ('calc-early','u-alice','textbooks','Calculus: Early Transcendentals','8th edition, light highlighting','both','45.00',14,'Library front desk'),
	  ('ti-84','u-bob','electronics','TI-84 Plus Calculator','Batteries included','lend',NULL,7,'Engineering hall lobby'),
	  ('lab-coat-m','u-alice','lab-gear','Lab Coat (M)','Washed, no stains','sell','15.00',7,'Chem building'),
	  ('desk-lamp','u-carol','furniture','LED Desk Lamp','Three brightness levels','sell','12.50',7,'North dorms')`)

	return tx.Commit()
}

// seedUsers ensures demo USERs and one ADMIN exist (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		ID, Email, Name, Role, Hash string
	}
	mk := func(id, email, name, role, raw string) u {
		h, _ := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
		return u{ID: id, Email: email, Name: name, Role: role, Hash: string(h)}
	}

	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM users`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	users := []u{
		mk("u-alice", "alice@campus.test", "Alice", "USER", "Passw0rd!"),
		mk("u-bob", "bob@campus.test", "Bob", "USER", "Passw0rd!"),
		mk("u-carol", "carol@campus.test", "Carol", "USER", "Passw0rd!"),
		mk("u-admin", "admin@campus.test", "Admin", "ADMIN", "Passw0rd!"),
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,name,password_hash,role)
			VALUES(?,?,?,?,?)
			ON CONFLICT(email) DO NOTHING
		`, x.ID, x.Email, x.Name, x.Hash, x.Role); err != nil {
			return err
		}
	}

	return tx.Commit()
}
