package sqlstore

import (
	"testing"

	"github.com/VitaminP8/blogexpress/internal/config"
	"github.com/VitaminP8/blogexpress/internal/storage/storagetest"
	"github.com/jinzhu/gorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupTestDB создает sqlite базу в памяти. Одно соединение, иначе каждое
// новое соединение получит свою пустую базу.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.DB().SetMaxOpenConns(1)
	require.NoError(t, Migrate(db))

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLStorage_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storagetest.Stores {
		db := setupTestDB(t)
		return storagetest.Stores{
			Users: NewUserStorage(db),
			Posts: NewPostStorage(db),
		}
	})
}

func TestDSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "localhost",
		Port:     "5432",
		User:     "blog",
		Password: "secret",
		Name:     "blogexpress",
		SSLMode:  "disable",
		Path:     "test.db",
	}

	t.Run("Postgres", func(t *testing.T) {
		cfg.Driver = "postgres"
		dsn, err := DSN(cfg)
		require.NoError(t, err)
		assert.Equal(t, "host=localhost user=blog password=secret dbname=blogexpress port=5432 sslmode=disable", dsn)
	})

	t.Run("MySQL", func(t *testing.T) {
		cfg.Driver = "mysql"
		dsn, err := DSN(cfg)
		require.NoError(t, err)
		assert.Equal(t, "blog:secret@tcp(localhost:5432)/blogexpress?charset=utf8mb4&parseTime=True&loc=UTC", dsn)
	})

	t.Run("SQLite", func(t *testing.T) {
		cfg.Driver = "sqlite3"
		dsn, err := DSN(cfg)
		require.NoError(t, err)
		assert.Equal(t, "test.db", dsn)
	})

	t.Run("Unknown driver", func(t *testing.T) {
		cfg.Driver = "oracle"
		_, err := DSN(cfg)
		assert.Error(t, err)
	})
}

func TestOpen(t *testing.T) {
	t.Run("Opens and migrates sqlite", func(t *testing.T) {
		db, err := Open(config.DatabaseConfig{Driver: "sqlite3", Path: ":memory:"}, zap.NewNop())
		require.NoError(t, err)
		defer db.Close()

		assert.True(t, db.HasTable("users"))
		assert.True(t, db.HasTable("posts"))
	})

	t.Run("Unknown driver", func(t *testing.T) {
		_, err := Open(config.DatabaseConfig{Driver: "oracle"}, zap.NewNop())
		assert.Error(t, err)
	})
}
