package database

import (
	"database/sql"
	stdlog "log"

	"github.com/el-kamal/auctify/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database migrations", "databasePath", databasePath)
	} else {
		stdlog.Println("Checking database migrations for:", databasePath)
	}
	migrateAuctionTable()
	migrateActorTable()

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS auctions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		number TEXT,
		name TEXT NOT NULL,
		date TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		status TEXT NOT NULL DEFAULT 'CREATED',
		buyer_fee_rate REAL NOT NULL DEFAULT 0.20,
		seller_fee_rate REAL NOT NULL DEFAULT 0.05,
		platform_fee_rate REAL NOT NULL DEFAULT 0.0
	);

	CREATE TABLE IF NOT EXISTS actors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL,
		email TEXT,
		phone_number TEXT,
		siren_siret TEXT,
		address TEXT,
		iban TEXT,
		bic TEXT,
		vat_subject BOOLEAN NOT NULL DEFAULT FALSE,
		is_company BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS lots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		auction_id INTEGER NOT NULL,
		lot_number INTEGER NOT NULL,
		description TEXT,
		hammer_price INTEGER,
		seller_id INTEGER,
		buyer_id INTEGER,
		status TEXT NOT NULL DEFAULT 'CREATED',
		FOREIGN KEY(auction_id) REFERENCES auctions(id),
		FOREIGN KEY(seller_id) REFERENCES actors(id),
		FOREIGN KEY(buyer_id) REFERENCES actors(id),
		UNIQUE(auction_id, lot_number)
	);

	CREATE TABLE IF NOT EXISTS invoices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		number TEXT UNIQUE,
		buyer_id INTEGER NOT NULL,
		auction_id INTEGER NOT NULL,
		total_excl REAL NOT NULL,
		total_vat REAL NOT NULL,
		total_incl REAL NOT NULL,
		status TEXT NOT NULL DEFAULT 'DRAFT',
		hash TEXT,
		previous_hash TEXT,
		signature_date TIMESTAMP,
		FOREIGN KEY(buyer_id) REFERENCES actors(id),
		FOREIGN KEY(auction_id) REFERENCES auctions(id)
	);

	CREATE TABLE IF NOT EXISTS settlements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		auction_id INTEGER NOT NULL,
		seller_id INTEGER NOT NULL,
		amount REAL NOT NULL,
		status TEXT NOT NULL DEFAULT 'CREATED',
		xml_content TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(auction_id) REFERENCES auctions(id),
		FOREIGN KEY(seller_id) REFERENCES actors(id)
	);
	`

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

func tableColumns(table string) map[string]bool {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&tableName)
	if err != nil {
		if err != sql.ErrNoRows && logger.L != nil {
			logger.L.Error("Error checking for table", "table", table, "error", err)
		}
		return nil
	}

	rows, err := DB.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema", "table", table, "error", err)
		}
		return nil
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info", "table", table, "error", err)
			}
			return nil
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info", "table", table, "error", err)
		}
		return nil
	}
	return columnExists
}

// migrateAuctionTable brings pre-existing auction tables up to the
// current schema. platform_fee_rate arrived after the first release.
func migrateAuctionTable() {
	columns := tableColumns("auctions")
	if columns == nil {
		return
	}

	if _, ok := columns["platform_fee_rate"]; !ok {
		_, err := DB.Exec("ALTER TABLE auctions ADD COLUMN platform_fee_rate REAL NOT NULL DEFAULT 0.0")
		if err != nil {
			logger.L.Error("Error adding 'platform_fee_rate' column to 'auctions' table", "error", err)
		} else {
			logger.L.Info("Added 'platform_fee_rate' column to 'auctions' table")
		}
	}
	if _, ok := columns["number"]; !ok {
		_, err := DB.Exec("ALTER TABLE auctions ADD COLUMN number TEXT")
		if err != nil {
			logger.L.Error("Error adding 'number' column to 'auctions' table", "error", err)
		} else {
			logger.L.Info("Added 'number' column to 'auctions' table")
		}
	}
}

// migrateActorTable adds the persisted seller classification. Existing
// actors get the honorific-prefix default the importer would have used.
func migrateActorTable() {
	columns := tableColumns("actors")
	if columns == nil {
		return
	}

	if _, ok := columns["is_company"]; !ok {
		_, err := DB.Exec("ALTER TABLE actors ADD COLUMN is_company BOOLEAN NOT NULL DEFAULT TRUE")
		if err != nil {
			logger.L.Error("Error adding 'is_company' column to 'actors' table", "error", err)
			return
		}
		logger.L.Info("Added 'is_company' column to 'actors' table")
		_, err = DB.Exec("UPDATE actors SET is_company = FALSE WHERE name LIKE 'M. %' OR name LIKE 'Mme %' OR name LIKE 'Mme. %'")
		if err != nil {
			logger.L.Error("Error backfilling 'is_company' values for existing actors", "error", err)
		}
	}
	if _, ok := columns["vat_subject"]; !ok {
		_, err := DB.Exec("ALTER TABLE actors ADD COLUMN vat_subject BOOLEAN NOT NULL DEFAULT FALSE")
		if err != nil {
			logger.L.Error("Error adding 'vat_subject' column to 'actors' table", "error", err)
		} else {
			logger.L.Info("Added 'vat_subject' column to 'actors' table")
		}
	}
}
