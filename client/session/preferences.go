package session

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// WeeklyReportInterval is the minimum gap between two weekly reports of a user.
const WeeklyReportInterval = 7 * 24 * time.Hour

var (
	prefsBucket = []byte("preferences")

	keyTheme         = []byte("theme")
	keyTourCompleted = []byte("tourCompleted")

	ErrUnknownTheme = errors.New("unknown theme")
)

func weeklyReportKey(userID string) []byte {
	return []byte("weeklyReport_" + userID)
}

// Preferences is the local key-value store of UI settings, backed by a bbolt file.
type Preferences struct {
	db *bbolt.DB
}

func OpenPreferences(path string) (*Preferences, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "creating preferences dir")
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "opening preferences")
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(prefsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating preferences bucket")
	}
	return &Preferences{db: db}, nil
}

func (p *Preferences) Close() error {
	return p.db.Close()
}

func (p *Preferences) get(key []byte) (val []byte, err error) {
	err = p.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(prefsBucket).Get(key); v != nil {
			val = append([]byte(nil), v...)
		}
		return nil
	})
	return val, err
}

func (p *Preferences) put(key, val []byte) error {
	return p.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(prefsBucket).Put(key, val)
	})
}

// Theme returns the stored theme, light by default.
func (p *Preferences) Theme() (Theme, error) {
	v, err := p.get(keyTheme)
	if err != nil {
		return "", errors.Wrap(err, "reading theme")
	}
	if Theme(v) == ThemeDark {
		return ThemeDark, nil
	}
	return ThemeLight, nil
}

func (p *Preferences) SetTheme(theme Theme) error {
	if theme != ThemeLight && theme != ThemeDark {
		return ErrUnknownTheme
	}
	return errors.Wrap(p.put(keyTheme, []byte(theme)), "writing theme")
}

func (p *Preferences) TourCompleted() (bool, error) {
	v, err := p.get(keyTourCompleted)
	if err != nil {
		return false, errors.Wrap(err, "reading tour state")
	}
	return string(v) == "true", nil
}

func (p *Preferences) SetTourCompleted(done bool) error {
	val := "false"
	if done {
		val = "true"
	}
	return errors.Wrap(p.put(keyTourCompleted, []byte(val)), "writing tour state")
}

// WeeklyReportDue reports whether userID's weekly report should be sent at now: no
// report was recorded for them during the last interval.
func (p *Preferences) WeeklyReportDue(userID string, now time.Time) (bool, error) {
	v, err := p.get(weeklyReportKey(userID))
	if err != nil {
		return false, errors.Wrap(err, "checking weekly report")
	}
	if v == nil {
		return true, nil
	}
	last, err := time.Parse(time.RFC3339Nano, string(v))
	if err != nil {
		return true, nil
	}
	return now.Sub(last) >= WeeklyReportInterval, nil
}

// RecordWeeklyReport marks userID's weekly report as sent at now.
func (p *Preferences) RecordWeeklyReport(userID string, now time.Time) error {
	v := []byte(now.UTC().Format(time.RFC3339Nano))
	return errors.Wrap(p.put(weeklyReportKey(userID), v), "recording weekly report")
}
