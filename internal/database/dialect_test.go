package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDialects(t *testing.T) {
	tests := []struct {
		dialect       Dialect
		driver        string
		subdir        string
		lastInsertID  bool
		insertIgnore  string
		resetSequence bool
	}{
		{
			dialect:      NewSQLiteDialect(),
			driver:       "sqlite3",
			subdir:       "sqlite",
			lastInsertID: true,
			insertIgnore: "INSERT OR IGNORE INTO progress_awards (kid_id, item_id) VALUES (?, ?)",
		},
		{
			dialect:       NewPostgresDialect(),
			driver:        "postgres",
			subdir:        "postgres",
			lastInsertID:  false,
			insertIgnore:  "INSERT INTO progress_awards (kid_id, item_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
			resetSequence: true,
		},
		{
			dialect:      NewMySQLDialect(),
			driver:       "mysql",
			subdir:       "mysql",
			lastInsertID: true,
			insertIgnore: "INSERT IGNORE INTO progress_awards (kid_id, item_id) VALUES (?, ?)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.dialect.Name(), func(t *testing.T) {
			assert.Equal(t, tt.driver, tt.dialect.DriverName())
			assert.Equal(t, tt.subdir, tt.dialect.MigrationsSubdir())
			assert.Equal(t, tt.lastInsertID, tt.dialect.SupportsLastInsertId())
			assert.Equal(t, tt.insertIgnore, tt.dialect.InsertIgnore("progress_awards", []string{"kid_id", "item_id"}))
			assert.Equal(t, tt.resetSequence, tt.dialect.ResetSequenceQuery("kids") != "")
		})
	}
}

func TestRewriteQuery(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		expected string
	}{
		{
			name:     "SQLite no change",
			dialect:  NewSQLiteDialect(),
			query:    "SELECT * FROM kids WHERE id = ?",
			expected: "SELECT * FROM kids WHERE id = ?",
		},
		{
			name:     "PostgreSQL conditional debit",
			dialect:  NewPostgresDialect(),
			query:    "UPDATE student_progress SET total_moons = total_moons - ? WHERE kid_id = ? AND total_moons >= ?",
			expected: "UPDATE student_progress SET total_moons = total_moons - $1 WHERE kid_id = $2 AND total_moons >= $3",
		},
		{
			name:     "MySQL no change",
			dialect:  NewMySQLDialect(),
			query:    "UPDATE kids SET name = ? WHERE id = ?",
			expected: "UPDATE kids SET name = ? WHERE id = ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.dialect.RewriteQuery(tt.query))
		})
	}
}

func TestDSN(t *testing.T) {
	sqlite := NewSQLiteDialect()
	assert.Equal(t, ":memory:?_foreign_keys=on&_busy_timeout=5000", sqlite.DSN(DialectConfig{Path: ":memory:"}))
	assert.Equal(t, "./lunara.db?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", sqlite.DSN(DialectConfig{Path: "./lunara.db"}))

	mysql := NewMySQLDialect()
	assert.Equal(t, "u:p@tcp(db:3306)/lunara?parseTime=true", mysql.DSN(DialectConfig{URL: "u:p@tcp(db:3306)/lunara"}))
	assert.Equal(t, "u:p@tcp(db:3306)/lunara?tls=true&parseTime=true", mysql.DSN(DialectConfig{URL: "u:p@tcp(db:3306)/lunara?tls=true"}))
	assert.Equal(t, "x?parseTime=false", mysql.DSN(DialectConfig{URL: "x?parseTime=false"}))
}

func TestSplitStatements(t *testing.T) {
	content := `-- comment
CREATE TABLE a (
    id INTEGER
);

CREATE INDEX idx ON a(id);
`
	stmts := splitStatements(content)
	assert.Len(t, stmts, 2)
	assert.Equal(t, "CREATE INDEX idx ON a(id);", stmts[1])
}
