package results

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/tipshjalpen/resultat/internal/logger"
	_ "modernc.org/sqlite"
)

// Persistable is implemented by row types whose struct tags describe a table
type Persistable interface {
	GetTableName() string
}

// Compile-time check to ensure matchRow implements Persistable interface
var _ Persistable = (*matchRow)(nil)

// matchRow is the sqlite shape of a Match. Dates are stored as YYYY-MM-DD,
// empty when the match was undated.
type matchRow struct {
	League       string `column:"league" dbtype:"TEXT NOT NULL" primary:"true" index:"true"`
	Line         int    `column:"line" dbtype:"INTEGER NOT NULL" primary:"true"`
	MatchDate    string `column:"matchDate" dbtype:"TEXT NOT NULL DEFAULT ''" index:"true"`
	HomeTeamName string `column:"homeTeamName" dbtype:"TEXT NOT NULL" index:"true"`
	AwayTeamName string `column:"awayTeamName" dbtype:"TEXT NOT NULL" index:"true"`
	FullTimeHome int    `column:"fullTimeHomeGoals" dbtype:"INTEGER DEFAULT -1"`
	FullTimeAway int    `column:"fullTimeAwayGoals" dbtype:"INTEGER DEFAULT -1"`
	HalfTimeHome int    `column:"halfTimeHomeGoals" dbtype:"INTEGER DEFAULT -1"`
	HalfTimeAway int    `column:"halfTimeAwayGoals" dbtype:"INTEGER DEFAULT -1"`
}

func (r *matchRow) GetTableName() string {
	return "season_match"
}

func rowFromMatch(m Match) *matchRow {
	r := &matchRow{
		League:       m.League,
		Line:         m.Line,
		HomeTeamName: m.HomeTeam,
		AwayTeamName: m.AwayTeam,
		FullTimeHome: m.FullTimeHome,
		FullTimeAway: m.FullTimeAway,
		HalfTimeHome: m.HalfTimeHome,
		HalfTimeAway: m.HalfTimeAway,
	}
	if m.HasDate() {
		r.MatchDate = m.Date.Format(DateLayout)
	}
	return r
}

func (r *matchRow) toMatch() (Match, error) {
	m := Match{
		League:       r.League,
		Line:         r.Line,
		HomeTeam:     r.HomeTeamName,
		AwayTeam:     r.AwayTeamName,
		FullTimeHome: r.FullTimeHome,
		FullTimeAway: r.FullTimeAway,
		HalfTimeHome: r.HalfTimeHome,
		HalfTimeAway: r.HalfTimeAway,
	}
	if r.MatchDate != "" {
		d, err := time.ParseInLocation(DateLayout, r.MatchDate, time.UTC)
		if err != nil {
			return Match{}, fmt.Errorf("bad stored date %q: %w", r.MatchDate, err)
		}
		m.Date = d
	}
	return m, nil
}

// Store exports parsed seasons to a sqlite database. Queries never read from
// it; it exists for tools that want the data in SQL form.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the sqlite database at path
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// every connection to ":memory:" is a separate database
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Debug("Database opened", path)
	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateTables creates all tables and indexes the store needs
func (s *Store) CreateTables() error {
	return s.createTable(&matchRow{})
}

func (s *Store) createTable(obj Persistable) error {
	tableName := obj.GetTableName()
	createSQL := generateCreateTableSQL(obj, tableName)
	logger.Debug("Creating table with SQL", createSQL)

	if _, err := s.db.Exec(createSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}
	for _, query := range generateIndexSQL(obj, tableName) {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", tableName, err)
		}
	}
	return nil
}

// SaveSeason replaces every stored match of league with matches, in one transaction
func (s *Store) SaveSeason(league string, matches []Match) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	table := (&matchRow{}).GetTableName()
	if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE league = ?", table), league); err != nil {
		return fmt.Errorf("failed to clear %s: %w", league, err)
	}

	for _, m := range matches {
		if m.League != league {
			return fmt.Errorf("match on line %d belongs to %q, not %q", m.Line, m.League, league)
		}
		row := rowFromMatch(m)
		columns, placeholders, values := getInsertData(row)
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
		if _, err := tx.Exec(query, values...); err != nil {
			return fmt.Errorf("failed to insert line %d of %s: %w", m.Line, league, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	logger.Info("Saved season", league, len(matches), "matches")
	return nil
}

// LoadSeason reads back the stored matches of league in file order
func (s *Store) LoadSeason(league string) ([]Match, error) {
	proto := &matchRow{}
	columns, _ := getSelectData(proto)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE league = ? ORDER BY line",
		strings.Join(columns, ", "), proto.GetTableName())

	rows, err := s.db.Query(query, league)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", league, err)
	}
	defer rows.Close()

	matches := make([]Match, 0)
	for rows.Next() {
		row := &matchRow{}
		_, destinations := getSelectData(row)
		if err := rows.Scan(destinations...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		m, err := row.toMatch()
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return matches, nil
}

// StoredLeagues lists the leagues present in the store
func (s *Store) StoredLeagues() ([]string, error) {
	rows, err := s.db.Query(fmt.Sprintf("SELECT DISTINCT league FROM %s ORDER BY league", (&matchRow{}).GetTableName()))
	if err != nil {
		return nil, fmt.Errorf("failed to list leagues: %w", err)
	}
	defer rows.Close()

	var leagues []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		leagues = append(leagues, l)
	}
	return leagues, rows.Err()
}

// columnName returns the column tag, falling back to the lower cased field name
func columnName(field reflect.StructField) string {
	if c := field.Tag.Get("column"); c != "" {
		return c
	}
	return strings.ToLower(field.Name)
}

// persistedFields returns the exported fields that carry a dbtype tag
func persistedFields(t reflect.Type) []reflect.StructField {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	var fields []reflect.StructField
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Tag.Get("dbtype") == "" {
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

// generateCreateTableSQL generates CREATE TABLE SQL from struct tags
func generateCreateTableSQL(obj any, tableName string) string {
	var columns, primaryKeys []string
	for _, f := range persistedFields(reflect.TypeOf(obj)) {
		name := columnName(f)
		columns = append(columns, fmt.Sprintf("%s %s", name, f.Tag.Get("dbtype")))
		if f.Tag.Get("primary") == "true" {
			primaryKeys = append(primaryKeys, name)
		}
	}
	if len(primaryKeys) > 0 {
		columns = append(columns, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(primaryKeys, ", ")))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", tableName, strings.Join(columns, ", "))
}

// generateIndexSQL generates index creation SQL from struct tags
func generateIndexSQL(obj any, tableName string) []string {
	var queries []string
	for _, f := range persistedFields(reflect.TypeOf(obj)) {
		if f.Tag.Get("index") == "" {
			continue
		}
		name := columnName(f)
		queries = append(queries, fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)", tableName, name, tableName, name))
	}
	return queries
}

// getInsertData extracts column names, placeholders, and values for INSERT
func getInsertData(obj any) ([]string, []string, []any) {
	v := reflect.ValueOf(obj).Elem()
	var columns, placeholders []string
	var values []any
	for _, f := range persistedFields(v.Type()) {
		columns = append(columns, columnName(f))
		placeholders = append(placeholders, "?")
		values = append(values, v.FieldByIndex(f.Index).Interface())
	}
	return columns, placeholders, values
}

// getSelectData extracts column names and scan destinations for SELECT
func getSelectData(obj any) ([]string, []any) {
	v := reflect.ValueOf(obj).Elem()
	var columns []string
	var destinations []any
	for _, f := range persistedFields(v.Type()) {
		columns = append(columns, columnName(f))
		destinations = append(destinations, v.FieldByIndex(f.Index).Addr().Interface())
	}
	return columns, destinations
}
