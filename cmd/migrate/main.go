package main

import (
	"database/sql"
	"flag"
	"log"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/lib/pq"

	"groupbet/internal/config"
)

// Applies the SQL files under migrations/ in lexical order. The server also
// runs AutoMigrate at startup; this binary is for locked-down environments
// where schema changes go through a separate DDL role.
func main() {
	dir := flag.String("dir", "migrations", "directory containing .sql migration files")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(*dir, "*.sql"))
	if err != nil {
		log.Fatalf("Failed to list migrations: %v", err)
	}
	sort.Strings(files)

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", file, err)
		}

		log.Printf("Applying migration: %s", filepath.Base(file))
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			log.Fatalf("Failed to apply %s: %v", file, err)
		}
	}

	log.Printf("Applied %d migration(s)", len(files))
}
