package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnidb-project/omnidb/pkg/dialect"
	"github.com/omnidb-project/omnidb/pkg/pipeline"
	"github.com/omnidb-project/omnidb/pkg/record"
	"github.com/omnidb-project/omnidb/pkg/reflection"
)

type fakePipeline struct {
	rec record.Record
	err error
	got []record.Query
}

func (f *fakePipeline) Submit(_ context.Context, q record.Query) (record.Record, error) {
	f.got = append(f.got, q)
	rec := f.rec
	rec.Query = q
	return rec, f.err
}

type fakeInspector struct {
	tables  []string
	columns map[string][]reflection.ColumnInfo
}

func (f *fakeInspector) ListTables(context.Context) ([]string, error) {
	return f.tables, nil
}

func (f *fakeInspector) DescribeTable(_ context.Context, name string) ([]reflection.ColumnInfo, error) {
	columns, ok := f.columns[name]
	if !ok {
		return nil, reflection.ErrTableNotFound
	}
	return columns, nil
}

type fakeLister struct {
	records []record.Record
}

func (f *fakeLister) ListAll(context.Context) ([]record.Record, error) {
	return f.records, nil
}

func newTestHandler(t *testing.T, p Submitter, i reflection.Inspector, l Lister) *Handler {
	t.Helper()
	if p == nil {
		p = &fakePipeline{}
	}
	if i == nil {
		i = &fakeInspector{}
	}
	if l == nil {
		l = &fakeLister{}
	}
	h, err := NewHandler(HandlerConfig{Pipeline: p, Inspector: i, Store: l})
	require.NoError(t, err)
	return h
}

func TestNewHandler_Validation(t *testing.T) {
	_, err := NewHandler(HandlerConfig{})
	require.Error(t, err)

	_, err = NewHandler(HandlerConfig{Pipeline: &fakePipeline{}})
	require.Error(t, err)

	_, err = NewHandler(HandlerConfig{Pipeline: &fakePipeline{}, Inspector: &fakeInspector{}})
	require.Error(t, err)
}

func TestPing(t *testing.T) {
	h := newTestHandler(t, nil, nil, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pong", rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodHead, "/ping", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHome(t *testing.T) {
	h := newTestHandler(t, nil, nil, nil)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "gateway:4411"
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var payload struct {
		Results map[string]string `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	assert.Equal(t, "postgresql+omni://gateway:4411/", payload.Results["PostgreSQL"])
	assert.Equal(t, "mssql+omni://gateway:4411/", payload.Results["Microsoft SQL Server"])
}

func TestListTables(t *testing.T) {
	h := newTestHandler(t, nil, &fakeInspector{tables: []string{"queries", "t"}}, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reflection", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var payload struct {
		Results []string `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	assert.Equal(t, []string{"queries", "t"}, payload.Results)
}

func TestDescribeTable(t *testing.T) {
	typeName := "INTEGER"
	inspector := &fakeInspector{columns: map[string][]reflection.ColumnInfo{
		"t": {{Name: "x", Type: &typeName, Nullable: true}},
	}}
	h := newTestHandler(t, nil, inspector, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reflection/t", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var payload struct {
		Results struct {
			Columns []reflection.ColumnInfo `json:"columns"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	require.Len(t, payload.Results.Columns, 1)
	assert.Equal(t, "x", payload.Results.Columns[0].Name)
}

func TestDescribeTable_NotFound(t *testing.T) {
	h := newTestHandler(t, nil, nil, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reflection/missing_table", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodHead, "/reflection/missing_table", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDescribeTable_PercentEncodedName(t *testing.T) {
	inspector := &fakeInspector{columns: map[string][]reflection.ColumnInfo{
		"a/b": {{Name: "x", Nullable: true}},
	}}
	h := newTestHandler(t, nil, inspector, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reflection/a%2Fb", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestListQueries(t *testing.T) {
	lister := &fakeLister{records: []record.Record{
		{RecordID: "rec-2", State: record.StateFailed},
		{RecordID: "rec-1", State: record.StateFinished},
	}}
	h := newTestHandler(t, nil, nil, lister)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/queries", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var payload struct {
		Results []record.Record `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	require.Len(t, payload.Results, 2)
	assert.Equal(t, "rec-2", payload.Results[0].RecordID)
}

func TestCreateQuery(t *testing.T) {
	p := &fakePipeline{rec: record.Record{
		RecordID: "rec-1",
		State:    record.StateFinished,
		Started:  time.Now().UTC(),
		Finished: time.Now().UTC(),
	}}
	h := newTestHandler(t, p, nil, nil)

	body := `{"dialect": "postgres", "submitted_sql": "SELECT 1"}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/queries", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rr.Code)

	var rec record.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, record.StateFinished, rec.State)
	assert.Equal(t, dialect.Postgres, rec.Dialect)
	assert.Equal(t, "SELECT 1", rec.SubmittedSQL)

	require.Len(t, p.got, 1)
	assert.Equal(t, dialect.Postgres, p.got[0].Dialect)
}

func TestCreateQuery_UnknownDialect(t *testing.T) {
	p := &fakePipeline{}
	h := newTestHandler(t, p, nil, nil)

	body := `{"dialect": "duckdb", "submitted_sql": "SELECT 1"}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/queries", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, p.got, "invalid dialect must be rejected before the pipeline")
}

func TestCreateQuery_InvalidBody(t *testing.T) {
	h := newTestHandler(t, nil, nil, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/queries", strings.NewReader("{not json")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateQuery_PersistFailureStillReturnsRecord(t *testing.T) {
	p := &fakePipeline{
		rec: record.Record{RecordID: "rec-1", State: record.StateFinished},
		err: &pipeline.PersistError{Err: assert.AnError},
	}
	h := newTestHandler(t, p, nil, nil)

	body := `{"dialect": "sqlite", "submitted_sql": "SELECT 1"}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/queries", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rr.Code)

	var rec record.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, "rec-1", rec.RecordID)
}

func TestCreateQuery_PipelineError(t *testing.T) {
	p := &fakePipeline{err: assert.AnError}
	h := newTestHandler(t, p, nil, nil)

	body := `{"dialect": "sqlite", "submitted_sql": "SELECT 1"}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/queries", strings.NewReader(body)))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
