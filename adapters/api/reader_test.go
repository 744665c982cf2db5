package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"gopairs/domain/core"
	"gopairs/internal/errors"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestAPIReader_ReadTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "desk", r.Header.Get("X-Client"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"instruments":[{"id":"A","values":[1,2,3]},{"id":"B","values":[2,4,6.5]}]}`))
	}))
	defer srv.Close()

	src := DefaultSource(srv.URL)
	src.AuthMethod = "bearer"
	src.AuthToken = "secret"
	src.Headers = map[string]string{"X-Client": "desk"}

	table, err := NewAPIReader(src, quietLogger()).ReadTable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []core.InstrumentID{"A", "B"}, table.IDs())
	b, _ := table.Values("B")
	assert.Equal(t, []float64{2, 4, 6.5}, b)
}

func TestAPIReader_CustomPaths(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get("X-API-Key"))
		w.Write([]byte(`{"data":{"series":[{"ticker":"X","closes":[1,2]},{"ticker":"Y","closes":[3,1]}]}}`))
	}))
	defer srv.Close()

	src := Source{URL: srv.URL, DataPath: "data.series", IDField: "ticker", ValuesField: "closes", AuthMethod: "api_key", AuthToken: "k"}
	table, err := NewAPIReader(src, quietLogger()).ReadTable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []core.InstrumentID{"X", "Y"}, table.IDs())
}

func TestAPIReader_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewAPIReader(DefaultSource(srv.URL), quietLogger()).ReadTable(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeExternalService, errors.GetCode(err))
	assert.Contains(t, err.Error(), "503")
}

func TestParseInstruments_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing path", `{"other":[]}`, "path not found"},
		{"not an array", `{"instruments":{"id":"A"}}`, "not an array"},
		{"numeric id", `{"instruments":[{"id":1,"values":[1]}]}`, "instruments.0.id"},
		{"missing values", `{"instruments":[{"id":"A"}]}`, "instruments.0.values"},
		{"string cell", `{"instruments":[{"id":"A","values":[1,"x"]}]}`, "instruments.0.values.1"},
		{"ragged", `{"instruments":[{"id":"A","values":[1,2]},{"id":"B","values":[1]}]}`, "lengths differ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseInstruments([]byte(tt.body), "instruments", "id", "values")
			require.Error(t, err)
			assert.True(t, core.IsInvalidInput(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseInstruments_RootArray(t *testing.T) {
	table, err := ParseInstruments([]byte(`[{"id":"A","values":[1,2]},{"id":"B","values":[2,1]}]`), "", "id", "values")
	require.NoError(t, err)
	assert.Equal(t, 2, table.Width())
}
