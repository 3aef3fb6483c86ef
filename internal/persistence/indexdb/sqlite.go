package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"thermocraft.ai/internal/sim/catalogs"
	"thermocraft.ai/internal/sim/tuning"
	"thermocraft.ai/internal/sim/world"
)

// SQLiteIndex is a queryable secondary index over the append-only JSONL
// logs. Writes go through a single connection and a writer goroutine; the
// JSONL logs remain the source of truth, so the index may drop rows under
// pressure.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqSample reqKind = iota + 1
	reqDay
	reqSessionJoin
	reqSessionLeave
	reqSnapshot
	reqFlush
)

type req struct {
	kind reqKind

	sample   world.FieldSample
	day      dayRow
	session  sessionRow
	snapshot snapshotRow
}

type dayRow struct {
	WorldID string
	Day     uint64
	PeakC   float64
	LowC    float64
}

type sessionRow struct {
	WorldID string
	AgentID string
	Name    string
	Tick    uint64
}

type snapshotRow struct {
	WorldID string
	Tick    uint64
	Path    string
	Chunks  int
	Agents  int
}

// SessionRow is one observed join, with the leave tick filled in once the
// agent disconnects.
type SessionRow struct {
	WorldID   string
	AgentID   string
	Name      string
	JoinTick  uint64
	LeaveTick *uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// High buffer: field samples arrive in per-world bursts each sample
		// period and must not stall the world loops.
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

// OpenSQLiteReadOnly opens an existing index for querying without starting
// the writer goroutine. Used by the admin tool.
func OpenSQLiteReadOnly(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &SQLiteIndex{db: db}
	s.closed.Store(true)
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS samples (
			world_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			agent_id TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			ambient_c REAL NOT NULL,
			offset_c REAL NOT NULL,
			exposure REAL NOT NULL,
			PRIMARY KEY (world_id, tick, agent_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_samples_agent_tick ON samples(agent_id, tick);`,
		`CREATE TABLE IF NOT EXISTS days (
			world_id TEXT NOT NULL,
			day INTEGER NOT NULL,
			peak_c REAL NOT NULL,
			low_c REAL NOT NULL,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (world_id, day)
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			world_id TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			name TEXT NOT NULL,
			join_tick INTEGER NOT NULL,
			leave_tick INTEGER,
			PRIMARY KEY (world_id, agent_id, join_tick)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_join ON sessions(world_id, join_tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			world_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			path TEXT NOT NULL,
			chunks INTEGER NOT NULL,
			agents INTEGER NOT NULL,
			PRIMARY KEY (world_id, tick)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		if !s.closed.Load() {
			s.closed.Store(true)
			close(s.ch)
			s.wg.Wait()
		}
		err = s.db.Close()
	})
	return err
}

// Sample implements world.Sampler.
func (s *SQLiteIndex) Sample(fs world.FieldSample) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqSample, sample: fs}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
	}
}

func (s *SQLiteIndex) RecordDay(worldID string, day uint64, peakC, lowC float64) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqDay, day: dayRow{WorldID: worldID, Day: day, PeakC: peakC, LowC: lowC}}:
	default:
	}
}

func (s *SQLiteIndex) RecordJoin(worldID, agentID, name string, tick uint64) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqSessionJoin, session: sessionRow{WorldID: worldID, AgentID: agentID, Name: name, Tick: tick}}:
	default:
	}
}

func (s *SQLiteIndex) RecordLeave(worldID, agentID string, tick uint64) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqSessionLeave, session: sessionRow{WorldID: worldID, AgentID: agentID, Tick: tick}}:
	default:
	}
}

func (s *SQLiteIndex) RecordSnapshot(worldID string, tick uint64, path string, chunks, agents int) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: snapshotRow{WorldID: worldID, Tick: tick, Path: path, Chunks: chunks, Agents: agents}}:
	default:
	}
}

// UpsertCatalogs records the catalog digests in force for this run so a
// sample in the index can be traced back to the definitions it was taken
// under.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	raw := map[string][]byte{}
	read := func(name, path string) {
		b, err := os.ReadFile(path)
		if err != nil {
			return
		}
		raw[name] = b
	}
	if configDir != "" {
		read("blocks_defs", filepath.Join(configDir, "blocks.json"))
		read("biomes_defs", filepath.Join(configDir, "biomes.json"))
		read("items_defs", filepath.Join(configDir, "items.json"))
	}

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if b := raw["blocks_defs"]; len(b) > 0 {
		rows = append(rows, kv{name: "blocks_defs", digest: cats.Blocks.DefsDigest, json: b})
	}
	if b, _ := json.Marshal(cats.Blocks.Palette); len(b) > 0 {
		rows = append(rows, kv{name: "blocks_palette", digest: cats.Blocks.PaletteDigest, json: b})
	}
	if b := raw["biomes_defs"]; len(b) > 0 {
		rows = append(rows, kv{name: "biomes_defs", digest: cats.Biomes.Digest, json: b})
	}
	if b := raw["items_defs"]; len(b) > 0 {
		rows = append(rows, kv{name: "items_defs", digest: cats.Items.DefsDigest, json: b})
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		digest := hex.EncodeToString(sum[:])
		rows = append(rows, kv{name: "tuning", digest: digest, json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecentSamples returns the newest samples for a world, newest first.
func (s *SQLiteIndex) RecentSamples(worldID string, limit int) ([]world.FieldSample, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT world_id, tick, agent_id, x, y, z, ambient_c, offset_c, exposure
		 FROM samples WHERE world_id = ? ORDER BY tick DESC, agent_id LIMIT ?`,
		worldID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []world.FieldSample
	for rows.Next() {
		var fs world.FieldSample
		if err := rows.Scan(&fs.WorldID, &fs.Tick, &fs.AgentID,
			&fs.Pos[0], &fs.Pos[1], &fs.Pos[2],
			&fs.AmbientC, &fs.OffsetC, &fs.Exposure); err != nil {
			return nil, err
		}
		out = append(out, fs)
	}
	return out, rows.Err()
}

// DayParams returns the recorded diurnal envelope for a day, if indexed.
func (s *SQLiteIndex) DayParams(worldID string, day uint64) (peakC, lowC float64, ok bool, err error) {
	row := s.db.QueryRow(
		`SELECT peak_c, low_c FROM days WHERE world_id = ? AND day = ?`, worldID, int64(day))
	switch err := row.Scan(&peakC, &lowC); err {
	case nil:
		return peakC, lowC, true, nil
	case sql.ErrNoRows:
		return 0, 0, false, nil
	default:
		return 0, 0, false, err
	}
}

// Days returns up to limit recorded diurnal envelopes, newest first.
func (s *SQLiteIndex) Days(worldID string, limit int) ([]struct {
	Day   uint64
	PeakC float64
	LowC  float64
}, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.db.Query(
		`SELECT day, peak_c, low_c FROM days WHERE world_id = ? ORDER BY day DESC LIMIT ?`,
		worldID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []struct {
		Day   uint64
		PeakC float64
		LowC  float64
	}
	for rows.Next() {
		var r struct {
			Day   uint64
			PeakC float64
			LowC  float64
		}
		if err := rows.Scan(&r.Day, &r.PeakC, &r.LowC); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Sessions returns recent joins for a world, newest first.
func (s *SQLiteIndex) Sessions(worldID string, limit int) ([]SessionRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT world_id, agent_id, name, join_tick, leave_tick
		 FROM sessions WHERE world_id = ? ORDER BY join_tick DESC LIMIT ?`,
		worldID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var r SessionRow
		var leave sql.NullInt64
		if err := rows.Scan(&r.WorldID, &r.AgentID, &r.Name, &r.JoinTick, &leave); err != nil {
			return nil, err
		}
		if leave.Valid {
			lt := uint64(leave.Int64)
			r.LeaveTick = &lt
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Worlds lists the world IDs present in the samples table.
func (s *SQLiteIndex) Worlds() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT world_id FROM samples ORDER BY world_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Flush asks the writer to commit its open transaction and waits for the
// queue to drain. Test helper.
func (s *SQLiteIndex) Flush() {
	if s == nil || s.closed.Load() {
		return
	}
	s.ch <- req{kind: reqFlush}
	for len(s.ch) > 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond)
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertSample, _ := s.db.Prepare(`INSERT OR REPLACE INTO samples(world_id,tick,agent_id,x,y,z,ambient_c,offset_c,exposure) VALUES(?,?,?,?,?,?,?,?,?)`)
	insertDay, _ := s.db.Prepare(`INSERT OR REPLACE INTO days(world_id,day,peak_c,low_c,recorded_at) VALUES(?,?,?,?,?)`)
	insertJoin, _ := s.db.Prepare(`INSERT OR REPLACE INTO sessions(world_id,agent_id,name,join_tick,leave_tick) VALUES(?,?,?,?,NULL)`)
	closeLeave, _ := s.db.Prepare(`UPDATE sessions SET leave_tick = ? WHERE world_id = ? AND agent_id = ? AND leave_tick IS NULL`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(world_id,tick,path,chunks,agents) VALUES(?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertSample, insertDay, insertJoin, closeLeave, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 1000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		if r.kind == reqFlush {
			commit()
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqSample:
			fs := r.sample
			if insertSample != nil {
				if _, err := tx.Stmt(insertSample).Exec(
					fs.WorldID, int64(fs.Tick), fs.AgentID,
					fs.Pos[0], fs.Pos[1], fs.Pos[2],
					fs.AmbientC, fs.OffsetC, fs.Exposure,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqDay:
			d := r.day
			if insertDay != nil {
				now := time.Now().UTC().Format(time.RFC3339Nano)
				if _, err := tx.Stmt(insertDay).Exec(d.WorldID, int64(d.Day), d.PeakC, d.LowC, now); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqSessionJoin:
			se := r.session
			if insertJoin != nil {
				if _, err := tx.Stmt(insertJoin).Exec(se.WorldID, se.AgentID, se.Name, int64(se.Tick)); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqSessionLeave:
			se := r.session
			if closeLeave != nil {
				if _, err := tx.Stmt(closeLeave).Exec(int64(se.Tick), se.WorldID, se.AgentID); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqSnapshot:
			sn := r.snapshot
			if insertSnapshot != nil {
				if _, err := tx.Stmt(insertSnapshot).Exec(sn.WorldID, int64(sn.Tick), sn.Path, sn.Chunks, sn.Agents); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}
