// Package chainstore persists sampler runs and their chains in a SQLite
// database, one file per experiment campaign. Coefficient vectors are
// stored as raw little-endian float64 pairs so chains round-trip
// bit-exactly.
package chainstore

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/noders-team/go-proxmc/pkg/mcmc"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	experiment  TEXT NOT NULL,
	sampler     TEXT NOT NULL,
	params      TEXT NOT NULL,
	operator    TEXT NOT NULL,
	steps       INTEGER NOT NULL DEFAULT 0,
	elapsed_ns  INTEGER NOT NULL DEFAULT 0,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER
);

CREATE TABLE IF NOT EXISTS samples (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	idx        INTEGER NOT NULL,
	logpost    REAL NOT NULL,
	acceptance REAL,
	coeffs     BLOB NOT NULL,
	PRIMARY KEY (run_id, idx)
);
`

// OperatorMeta records the forward-model geometry alongside a run so a
// chain can be interpreted without the original config.
type OperatorMeta struct {
	Name    string  `json:"name"`
	L       int     `json:"l"`
	B       float64 `json:"b,omitempty"`
	JMin    int     `json:"j_min,omitempty"`
	Sigma   float64 `json:"sigma"`
	NParams int     `json:"nparams"`
}

// RunMeta describes one persisted sampler run.
type RunMeta struct {
	ID         string
	Experiment string
	Sampler    string
	Params     mcmc.Params
	Operator   OperatorMeta
	Steps      int
	Elapsed    time.Duration
	StartedAt  time.Time
	FinishedAt time.Time // zero until FinishRun
}

// Store is a SQLite-backed chain archive.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path, creating parent
// directories as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory '%s': %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database '%s': %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialise schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun registers a new run, assigning an ID and start time when
// absent, and returns the run ID.
func (s *Store) CreateRun(meta *RunMeta) (string, error) {
	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	if meta.StartedAt.IsZero() {
		meta.StartedAt = time.Now()
	}
	params, err := json.Marshal(meta.Params)
	if err != nil {
		return "", fmt.Errorf("failed to encode params: %w", err)
	}
	operator, err := json.Marshal(meta.Operator)
	if err != nil {
		return "", fmt.Errorf("failed to encode operator metadata: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO runs (id, experiment, sampler, params, operator, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.Experiment, meta.Sampler, string(params), string(operator), meta.StartedAt.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return meta.ID, nil
}

// SaveChain persists a chain under an existing run and records its step
// count and duration.
func (s *Store) SaveChain(runID string, chain *mcmc.Chain) error {
	if _, err := s.GetRun(runID); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO samples (run_id, idx, logpost, acceptance, coeffs) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, sample := range chain.Samples {
		var acceptance interface{}
		if i < len(chain.Acceptance) {
			acceptance = chain.Acceptance[i]
		}
		if _, err := stmt.Exec(runID, i, chain.LogPost[i], acceptance, encodeCoeffs(sample)); err != nil {
			return fmt.Errorf("failed to insert sample %d: %w", i, err)
		}
	}

	if _, err := tx.Exec(
		`UPDATE runs SET steps = ?, elapsed_ns = ? WHERE id = ?`,
		chain.Steps, chain.Elapsed.Nanoseconds(), runID,
	); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return tx.Commit()
}

// LoadChain reads a persisted chain back, in sample order.
func (s *Store) LoadChain(runID string) (*mcmc.Chain, error) {
	meta, err := s.GetRun(runID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT logpost, acceptance, coeffs FROM samples WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	chain := &mcmc.Chain{
		Sampler: meta.Sampler,
		Steps:   meta.Steps,
		Elapsed: meta.Elapsed,
	}
	for rows.Next() {
		var (
			logpost    float64
			acceptance sql.NullFloat64
			blob       []byte
		)
		if err := rows.Scan(&logpost, &acceptance, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		coeffs, err := decodeCoeffs(blob)
		if err != nil {
			return nil, err
		}
		chain.Samples = append(chain.Samples, coeffs)
		chain.LogPost = append(chain.LogPost, logpost)
		if acceptance.Valid {
			chain.Acceptance = append(chain.Acceptance, acceptance.Float64)
		}
	}
	return chain, rows.Err()
}

// FinishRun stamps the run's completion time.
func (s *Store) FinishRun(runID string) error {
	res, err := s.db.Exec(`UPDATE runs SET finished_at = ? WHERE id = ?`, time.Now().UnixNano(), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("unknown run %q", runID)
	}
	return nil
}

// GetRun loads a single run's metadata.
func (s *Store) GetRun(runID string) (*RunMeta, error) {
	row := s.db.QueryRow(
		`SELECT id, experiment, sampler, params, operator, steps, elapsed_ns, started_at, finished_at FROM runs WHERE id = ?`,
		runID)
	meta, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("unknown run %q", runID)
	}
	return meta, err
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns() ([]*RunMeta, error) {
	rows, err := s.db.Query(
		`SELECT id, experiment, sampler, params, operator, steps, elapsed_ns, started_at, finished_at FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var metas []*RunMeta
	for rows.Next() {
		meta, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		metas = append(metas, meta)
	}
	return metas, rows.Err()
}

func scanRun(scan func(dest ...interface{}) error) (*RunMeta, error) {
	var (
		meta       RunMeta
		params     string
		operator   string
		elapsedNS  int64
		startedAt  int64
		finishedAt sql.NullInt64
	)
	err := scan(&meta.ID, &meta.Experiment, &meta.Sampler, &params, &operator,
		&meta.Steps, &elapsedNS, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(params), &meta.Params); err != nil {
		return nil, fmt.Errorf("failed to decode params: %w", err)
	}
	if err := json.Unmarshal([]byte(operator), &meta.Operator); err != nil {
		return nil, fmt.Errorf("failed to decode operator metadata: %w", err)
	}
	meta.Elapsed = time.Duration(elapsedNS)
	meta.StartedAt = time.Unix(0, startedAt)
	if finishedAt.Valid {
		meta.FinishedAt = time.Unix(0, finishedAt.Int64)
	}
	return &meta, nil
}

func encodeCoeffs(coeffs []complex128) []byte {
	buf := make([]byte, 16*len(coeffs))
	for i, c := range coeffs {
		binary.LittleEndian.PutUint64(buf[16*i:], math.Float64bits(real(c)))
		binary.LittleEndian.PutUint64(buf[16*i+8:], math.Float64bits(imag(c)))
	}
	return buf
}

func decodeCoeffs(blob []byte) ([]complex128, error) {
	if len(blob)%16 != 0 {
		return nil, fmt.Errorf("corrupt coefficient blob of %d bytes", len(blob))
	}
	coeffs := make([]complex128, len(blob)/16)
	for i := range coeffs {
		re := binary.LittleEndian.Uint64(blob[16*i:])
		im := binary.LittleEndian.Uint64(blob[16*i+8:])
		coeffs[i] = complex(math.Float64frombits(re), math.Float64frombits(im))
	}
	return coeffs, nil
}
