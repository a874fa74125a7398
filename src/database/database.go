package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/mindfolio/backend/src/logger"
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
	migrateTradesTable()

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS profiles (
		user_id INTEGER PRIMARY KEY,
		email TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		has_completed_questionnaire BOOLEAN DEFAULT FALSE,
		has_uploaded_statement BOOLEAN DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS uploaded_statements (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		filename TEXT NOT NULL,
		file_size INTEGER NOT NULL,
		file_type TEXT NOT NULL,
		processing_status TEXT NOT NULL DEFAULT 'pending',
		error_message TEXT,
		upload_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		statement_id TEXT,
		trade_date TEXT NOT NULL,
		symbol TEXT NOT NULL,
		action TEXT NOT NULL,
		volume REAL,
		price REAL,
		profit REAL,
		emotion TEXT,
		confidence REAL,
		notes TEXT,
		hash_id TEXT,
		FOREIGN KEY(statement_id) REFERENCES uploaded_statements(id),
		UNIQUE(user_id, hash_id)
	);

	CREATE TABLE IF NOT EXISTS trading_analysis (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		statement_id TEXT,
		analysis_type TEXT NOT NULL,
		analysis_data TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(statement_id) REFERENCES uploaded_statements(id)
	);

	CREATE TABLE IF NOT EXISTS questionnaire_responses (
		user_id INTEGER PRIMARY KEY,
		responses TEXT NOT NULL,
		completed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
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

// migrateTradesTable adds columns introduced after the first release to
// existing trades tables. Additive only.
func migrateTradesTable() {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='trades'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			return // table will be created with the full schema
		}
		if logger.L != nil {
			logger.L.Error("Error checking for 'trades' table", "error", err)
		} else {
			stdlog.Printf("Error checking for 'trades' table: %v", err)
		}
		return
	}

	rows, err := DB.Query("PRAGMA table_info(trades)")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema for 'trades'", "error", err)
		} else {
			stdlog.Printf("Error querying table schema for 'trades': %v", err)
		}
		return
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
				logger.L.Error("Error scanning column info for 'trades'", "error", err)
			} else {
				stdlog.Printf("Error scanning column info for 'trades': %v", err)
			}
			return
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info for 'trades'", "error", err)
		}
		return
	}

	if _, ok := columnExists["notes"]; !ok {
		if _, err := DB.Exec("ALTER TABLE trades ADD COLUMN notes TEXT"); err != nil {
			logger.L.Error("Error adding 'notes' column to 'trades' table", "error", err)
		} else {
			logger.L.Info("Added 'notes' column to 'trades' table")
		}
	}
	if _, ok := columnExists["hash_id"]; !ok {
		if _, err := DB.Exec("ALTER TABLE trades ADD COLUMN hash_id TEXT"); err != nil {
			logger.L.Error("Error adding 'hash_id' column to 'trades' table", "error", err)
		} else {
			logger.L.Info("Added 'hash_id' column to 'trades' table")
		}
	}
}
