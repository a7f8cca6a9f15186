package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/cstrsim/internal/dynamo"
	"github.com/san-kum/cstrsim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Model      string             `json:"model"`
	Timestamp  time.Time          `json:"timestamp"`
	Integrator string             `json:"integrator"`
	Duration   float64            `json:"duration"`
	Samples    int                `json:"samples"`
	Labels     []string           `json:"labels"`
	AuxLabels  []string           `json:"aux_labels,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
	Stats      dynamo.Stats       `json:"stats"`
	Attempts   int                `json:"attempts"`
	// Params records how the run was configured (preset, config file,
	// overridden flags).
	Params map[string]string `json:"params,omitempty"`
}

// NewRunID returns "<model>_<8 hex chars>".
func NewRunID(model string) string {
	return fmt.Sprintf("%s_%s", model, uuid.NewString()[:8])
}

func (s *Store) Save(result *sim.Result, params map[string]string) (string, error) {
	runID := NewRunID(result.Model)
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Model:      result.Model,
		Timestamp:  time.Now(),
		Integrator: result.Integrator,
		Samples:    len(result.Times),
		Labels:     result.Labels,
		AuxLabels:  result.AuxLabels,
		Metrics:    result.Metrics,
		Stats:      result.Stats,
		Attempts:   result.Attempts,
		Params:     params,
	}
	if n := len(result.Times); n > 0 {
		meta.Duration = result.Times[n-1] - result.Times[0]
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, statesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, result.Columns()); err != nil {
		return "", err
	}
	return runID, nil
}

// WriteCSV writes one header row of column names followed by one row per
// sample. Values use the shortest representation that parses back exactly.
func WriteCSV(out io.Writer, cols []sim.Column) error {
	w := csv.NewWriter(out)

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Name
	}
	if err := w.Write(header); err != nil {
		return err
	}

	rows := 0
	if len(cols) > 0 {
		rows = len(cols[0].Values)
	}
	row := make([]string, len(cols))
	for i := 0; i < rows; i++ {
		for j, c := range cols {
			row[j] = strconv.FormatFloat(c.Values[i], 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadColumns reads the stored series of a run by name.
func (s *Store) LoadColumns(runID string) ([]sim.Column, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty %s", runID, statesFile)
	}

	header := records[0]
	cols := make([]sim.Column, len(header))
	for j, name := range header {
		cols[j] = sim.Column{Name: name, Values: make([]float64, 0, len(records)-1)}
	}

	for i, record := range records[1:] {
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d column %s: %w", runID, i+1, header[j], err)
			}
			cols[j].Values = append(cols[j].Values, v)
		}
	}
	return cols, nil
}

// LoadResult rebuilds a sim.Result from a stored run.
func (s *Store) LoadResult(runID string) (*sim.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	cols, err := s.LoadColumns(runID)
	if err != nil {
		return nil, err
	}

	byName := make(map[string][]float64, len(cols))
	for _, c := range cols {
		byName[c.Name] = c.Values
	}
	times, ok := byName["t"]
	if !ok {
		return nil, fmt.Errorf("%s: no time column", runID)
	}

	res := &sim.Result{
		Model:      meta.Model,
		Integrator: meta.Integrator,
		Times:      times,
		States:     make([]dynamo.State, len(times)),
		Labels:     meta.Labels,
		AuxLabels:  meta.AuxLabels,
		Metrics:    meta.Metrics,
		Stats:      meta.Stats,
		Attempts:   meta.Attempts,
	}
	if len(meta.AuxLabels) > 0 {
		res.Aux = make([][]float64, len(times))
	}

	for i := range times {
		res.States[i] = make(dynamo.State, len(meta.Labels))
		for j, name := range meta.Labels {
			col, ok := byName[name]
			if !ok {
				return nil, fmt.Errorf("%s: missing column %s", runID, name)
			}
			res.States[i][j] = col[i]
		}
		if res.Aux == nil {
			continue
		}
		res.Aux[i] = make([]float64, len(meta.AuxLabels))
		for j, name := range meta.AuxLabels {
			col, ok := byName[name]
			if !ok {
				return nil, fmt.Errorf("%s: missing column %s", runID, name)
			}
			res.Aux[i][j] = col[i]
		}
	}
	return res, nil
}
