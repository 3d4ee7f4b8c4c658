package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"fibre-tracker/internal/models"
)

const resultExt = ".geojson"

// ResultStore keeps one GeoJSON result collection per suburb under <dir>/<STATE>/<suburb>.geojson.
type ResultStore struct {
	dir string
}

func NewResultStore(dir string) *ResultStore {
	return &ResultStore{dir: dir}
}

// Path returns the file name for a suburb's result collection.
func (s *ResultStore) Path(suburb, state string) string {
	return filepath.Join(s.dir, strings.ToUpper(state), models.FileName(suburb)+resultExt)
}

// Write stores the collection, replacing any previous one. One-space indentation keeps
// the files diff-friendly without inflating them.
func (s *ResultStore) Write(suburb, state string, fc models.FeatureCollection) error {
	if fc.Features == nil {
		fc.Features = []models.Feature{}
	}
	return writeJSONAtomic(s.Path(suburb, state), fc, " ")
}

// Read loads a suburb's result collection, returning models.ErrNotFound if there is none.
func (s *ResultStore) Read(suburb, state string) (*models.FeatureCollection, error) {
	return s.readFile(s.Path(suburb, state))
}

func (s *ResultStore) readFile(path string) (*models.FeatureCollection, error) {
	var fc models.FeatureCollection
	if err := readJSON(path, &fc); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("repository: result %s: %w", path, models.ErrNotFound)
		}
		return nil, err
	}
	return &fc, nil
}

// Generated returns a result file's generated timestamp without decoding its features,
// as long as "generated" precedes them (it does in files written by Write).
func (s *ResultStore) Generated(suburb, state string) (time.Time, error) {
	return generatedFromFile(s.Path(suburb, state))
}

func generatedFromFile(path string) (time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, fmt.Errorf("repository: result %s: %w", path, models.ErrNotFound)
		}
		return time.Time{}, fmt.Errorf("repository: open %s: %w", path, err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return time.Time{}, fmt.Errorf("repository: %s is not a JSON object", path)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return time.Time{}, fmt.Errorf("repository: read %s: %w", path, err)
		}
		if keyTok != "generated" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return time.Time{}, fmt.Errorf("repository: read %s: %w", path, err)
			}
			continue
		}
		var generated string
		if err := dec.Decode(&generated); err != nil {
			return time.Time{}, fmt.Errorf("repository: read %s: %w", path, err)
		}
		return models.ParseTimestamp(generated)
	}
	return time.Time{}, fmt.Errorf("repository: %s has no generated timestamp: %w", path, models.ErrNotFound)
}

// ResultInfo describes a stored result collection.
type ResultInfo struct {
	State     string
	Suburb    string
	File      string
	Generated time.Time
}

// List returns the result collections stored for state, ordered by file name. The suburb
// name is taken from the file name.
func (s *ResultStore) List(state string) ([]ResultInfo, error) {
	state = strings.ToUpper(state)
	matches, err := filepath.Glob(filepath.Join(s.dir, state, "*"+resultExt))
	if err != nil {
		return nil, fmt.Errorf("repository: list results for %s: %w", state, err)
	}
	sort.Strings(matches)

	infos := make([]ResultInfo, 0, len(matches))
	for _, path := range matches {
		generated, err := generatedFromFile(path)
		if err != nil {
			return nil, err
		}
		base := strings.TrimSuffix(filepath.Base(path), resultExt)
		infos = append(infos, ResultInfo{
			State:     state,
			Suburb:    strings.ReplaceAll(base, "-", " "),
			File:      base,
			Generated: generated,
		})
	}
	return infos, nil
}

// ReadAll loads every result collection stored for state.
func (s *ResultStore) ReadAll(state string) ([]models.FeatureCollection, error) {
	infos, err := s.List(state)
	if err != nil {
		return nil, err
	}
	out := make([]models.FeatureCollection, 0, len(infos))
	for _, info := range infos {
		fc, err := s.readFile(filepath.Join(s.dir, info.State, info.File+resultExt))
		if err != nil {
			return nil, err
		}
		out = append(out, *fc)
	}
	return out, nil
}
