package services

import (
	"time"

	"github.com/shamsucomsoft/onv-ncne-api/utils"
)

// recordBinder copies values out of a loosely typed record into typed model
// fields, remembering which columns the record actually carried. The first
// coercion failure is kept and reported once binding is done.
type recordBinder struct {
	rec  utils.Record
	cols []string
	err  error
}

func newBinder(rec utils.Record) *recordBinder {
	return &recordBinder{rec: rec}
}

func (b *recordBinder) touch(col string) {
	for _, c := range b.cols {
		if c == col {
			return
		}
	}
	b.cols = append(b.cols, col)
}

func (b *recordBinder) fail(err error) {
	if b.err == nil && err != nil {
		b.err = err
	}
}

func keysOr(col string, keys []string) []string {
	if len(keys) == 0 {
		return []string{col}
	}
	return keys
}

func (b *recordBinder) str(col string, dst *string, keys ...string) {
	if s, ok := b.rec.String(keysOr(col, keys)...); ok {
		*dst = s
		b.touch(col)
	}
}

func (b *recordBinder) strPtr(col string, dst **string, keys ...string) {
	if s, ok := b.rec.String(keysOr(col, keys)...); ok {
		*dst = &s
		b.touch(col)
	}
}

// strOr binds col from keys, falling back to def when the record carries none.
func (b *recordBinder) strOr(col string, dst **string, def string, keys ...string) {
	if s, ok := b.rec.String(keysOr(col, keys)...); ok {
		*dst = &s
		b.touch(col)
		return
	}
	if def != "" {
		*dst = &def
		b.touch(col)
	}
}

func (b *recordBinder) boolean(col string, dst *bool) {
	v, present, err := b.rec.Bool(col)
	if err != nil {
		b.fail(err)
		return
	}
	if present {
		*dst = v
		b.touch(col)
	}
}

func (b *recordBinder) float(col string, dst **float64) {
	f, err := b.rec.Float(col)
	if err != nil {
		b.fail(err)
		return
	}
	if f != nil {
		*dst = f
		b.touch(col)
	}
}

func (b *recordBinder) timePtr(col string, dst **time.Time) {
	t, err := b.rec.Time(col)
	if err != nil {
		b.fail(err)
		return
	}
	if t != nil {
		*dst = t
		b.touch(col)
	}
}

// timePtrInto binds a non-nullable timestamp only when the record carries it.
func (b *recordBinder) timePtrInto(col string, dst *time.Time) {
	t, err := b.rec.Time(col)
	if err != nil {
		b.fail(err)
		return
	}
	if t != nil {
		*dst = *t
		b.touch(col)
	}
}

// timeOrNow binds a required timestamp, defaulting to now when absent.
func (b *recordBinder) timeOrNow(col string, dst *time.Time) {
	t, err := b.rec.Time(col)
	if err != nil {
		b.fail(err)
		return
	}
	if t != nil {
		*dst = *t
		b.touch(col)
		return
	}
	if dst.IsZero() {
		*dst = time.Now()
	}
}

// createdAt honours a client supplied creation time on insert only.
func (b *recordBinder) createdAt(dst *time.Time) {
	t, err := b.rec.Time("created_at")
	if err != nil {
		b.fail(err)
		return
	}
	if t != nil {
		*dst = *t
	}
}

// require fails binding when any of cols was not supplied.
func (b *recordBinder) require(cols ...string) {
	for _, col := range cols {
		found := false
		for _, c := range b.cols {
			if c == col {
				found = true
				break
			}
		}
		if !found {
			b.fail(&utils.FieldError{Field: col, Reason: "value is required"})
			return
		}
	}
}

func (b *recordBinder) columns() []string {
	return b.cols
}
