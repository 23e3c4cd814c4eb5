package decode

import (
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/justapithecus/logbook/types"
)

// parser reads typed fields and keeps the first schema violation.
// Once err is set every accessor returns zero values.
type parser struct {
	dt   types.DataType
	form url.Values
	err  *DecodeError
}

func (p *parser) fail(path, msg string) {
	if p.err == nil {
		p.err = &DecodeError{Kind: ErrorSchema, Type: p.dt, Path: path, Msg: msg}
	}
}

func (p *parser) object(r gjson.Result, path string) gjson.Result {
	return p.asObject(r.Get(path), path)
}

func (p *parser) array(r gjson.Result, path string) []gjson.Result {
	return p.asArray(r.Get(path), path)
}

// asObject checks an already resolved value; path is only used for errors.
func (p *parser) asObject(v gjson.Result, path string) gjson.Result {
	if !v.IsObject() {
		p.fail(path, "expected object")
		return gjson.Result{}
	}
	return v
}

func (p *parser) asArray(v gjson.Result, path string) []gjson.Result {
	if !v.IsArray() {
		p.fail(path, "expected array")
		return nil
	}
	return v.Array()
}

// optArray returns nil when the field is absent or not an array. The server
// sends -1 in place of empty lists.
func (p *parser) optArray(r gjson.Result, path string) []gjson.Result {
	v := r.Get(path)
	if !v.IsArray() {
		return nil
	}
	return v.Array()
}

func (p *parser) int(r gjson.Result, path string) int {
	v := r.Get(path)
	switch v.Type {
	case gjson.Number:
		return int(v.Int())
	case gjson.String:
		n, err := strconv.Atoi(v.Str)
		if err == nil {
			return n
		}
	}
	p.fail(path, "expected number")
	return 0
}

func (p *parser) optInt(r gjson.Result, path string) int {
	if !r.Get(path).Exists() {
		return 0
	}
	return p.int(r, path)
}

func (p *parser) str(r gjson.Result, path string) string {
	v := r.Get(path)
	if v.Type != gjson.String {
		p.fail(path, "expected string")
		return ""
	}
	return v.Str
}

func (p *parser) optStr(r gjson.Result, path string) string {
	return r.Get(path).String()
}

func (p *parser) ints(r gjson.Result, path string) []int {
	arr := p.array(r, path)
	return intsOf(arr)
}

// millis converts an epoch-milliseconds field; 0 means unset.
func (p *parser) millis(r gjson.Result, path string) time.Time {
	ms := r.Get(path).Int()
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func (p *parser) formInt(key string) int {
	raw := p.form.Get(key)
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.fail("form:"+key, "expected integer form field")
		return 0
	}
	return n
}

func (p *parser) optFormInt(key string) int {
	if p.form.Get(key) == "" {
		return 0
	}
	return p.formInt(key)
}

// intsOf flattens a scalar or array value into ints.
func intsOf(arr []gjson.Result) []int {
	out := make([]int, 0, len(arr))
	for _, v := range arr {
		out = append(out, int(v.Int()))
	}
	return out
}

func intsOfValue(v gjson.Result) []int {
	if v.IsArray() {
		return intsOf(v.Array())
	}
	return []int{int(v.Int())}
}
