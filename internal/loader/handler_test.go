package loader

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/shipflow/internal/domain"
)

type capturedIngest struct {
	inventory string
	stock     string
	refs      *References
	err       error
}

func (c *capturedIngest) fn(_ context.Context, inventory, warehouseStock io.Reader, refs *References) ([]domain.Warning, error) {
	if c.err != nil {
		return nil, c.err
	}
	inv, _ := io.ReadAll(inventory)
	st, _ := io.ReadAll(warehouseStock)
	c.inventory = string(inv)
	c.stock = string(st)
	c.refs = refs
	return []domain.Warning{domain.Warnf(domain.WarnCoercedValue, "1 value coerced")}, nil
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for field, content := range files {
		fw, err := w.CreateFormFile(field, field+".csv")
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestIngestSnapshotEndpoint(t *testing.T) {
	captured := &capturedIngest{}
	router := mux.NewRouter()
	NewHandler(captured.fn, t.TempDir()).RegisterRoutes(router)

	body, contentType := multipartBody(t, map[string]string{
		"inventory":       "store_id,sku_id,stock,sales\n1,A,2,1\n",
		"warehouse_stock": "warehouse_id,sku_id,quantity\n1,A,10\n",
		"kpi":             "mg_id,min_deger\nG1,8\n",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/snapshot/ingest", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, captured.inventory, "store_id")
	assert.Contains(t, captured.stock, "warehouse_id")
	require.NotNil(t, captured.refs)
	assert.Equal(t, 8.0, captured.refs.KPIMinimums["G1"])
	assert.Contains(t, w.Body.String(), "warnings")
}

func TestIngestSnapshotMissingFile(t *testing.T) {
	captured := &capturedIngest{}
	router := mux.NewRouter()
	NewHandler(captured.fn, t.TempDir()).RegisterRoutes(router)

	body, contentType := multipartBody(t, map[string]string{
		"inventory": "store_id,sku_id,stock,sales\n",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/snapshot/ingest", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestSnapshotConfigurationError(t *testing.T) {
	captured := &capturedIngest{err: &domain.ConfigurationError{Reason: "quantity column missing"}}
	router := mux.NewRouter()
	NewHandler(captured.fn, t.TempDir()).RegisterRoutes(router)

	body, contentType := multipartBody(t, map[string]string{
		"inventory":       "store_id,sku_id,stock,sales\n",
		"warehouse_stock": "warehouse_id,sku_id\n",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/snapshot/ingest", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
