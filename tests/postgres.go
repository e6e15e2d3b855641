package tests

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/joho/godotenv"
	"github.com/prior-it/geodata/core"
	"github.com/prior-it/geodata/postgres"
)

var Faker = gofakeit.New(rand.Uint64())

// DatabaseURL returns the connection string in DATABASE_URL.
// Tests are skipped if no database has been configured.
func DatabaseURL(t *testing.T) string {
	t.Helper()
	err := godotenv.Load("../.env")
	if err != nil {
		log.Printf("Could not load the .env file: %v", err)
	}
	url := os.Getenv("DATABASE_URL")
	if len(url) == 0 {
		t.Skip("To test database functionality, set the DATABASE_URL env variable to a valid database")
	}
	return url
}

// Schema creates a fresh, empty schema for this test and drops it once the test finishes.
func Schema(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	url := DatabaseURL(t)
	db, err := postgres.NewDB(ctx, url)
	if err != nil {
		t.Fatalf("Cannot connect to the test database: %v", err)
	}
	schema := fmt.Sprintf("test_%d", Faker.Uint32())
	Check(db.CreateSchema(ctx, schema))
	t.Cleanup(func() {
		if err := db.DeleteSchema(context.Background(), schema); err != nil {
			log.Printf("Cannot delete test schema %q: %v", schema, err)
		}
		db.Close()
	})
	return schema
}

// DB connects to the database in DATABASE_URL, switches to a fresh schema for this test and
// runs all migrations. Tests are skipped if no database has been configured.
func DB(t *testing.T) *postgres.DB {
	t.Helper()
	ctx := context.Background()
	url := DatabaseURL(t)
	schema := Schema(t)
	db, err := postgres.NewDBWithOptions(ctx, url, postgres.Options{Schema: schema})
	if err != nil {
		t.Fatalf("Cannot connect to the test database: %v", err)
	}
	t.Cleanup(db.Close)

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Cannot migrate test db: %v", err)
	}

	return db
}

// DeleteAllRecords removes every record from the repository.
func DeleteAllRecords(repo core.GeographicalDataRepository) {
	ctx := context.Background()
	records, err := repo.GetAll(ctx)
	Check(err)
	for _, record := range records {
		_, err := repo.Delete(ctx, record.ID)
		Check(err)
	}
}

// CreateRecord stores a new valid record in the repository.
func CreateRecord(repo core.GeographicalDataRepository) *core.GeographicalData {
	record, err := repo.Create(context.Background(), FakeInput())
	if err != nil {
		log.Fatalf("cannot create record: %v", err)
	}
	return record
}

func Check(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
