// Package database opens a GORM database with connection pooling, retrying
// connects and structured query logging. The SQL ledger store is built on it.
//
//	db, err := database.Open(ctx, database.Config{Enabled: true, Driver: "sqlite", DSN: "ledger.db"}, log)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	err = db.AutoMigrate(&ledger.ResultRow{})
package database
