package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (http.Handler, fixture) {
	t.Helper()
	f := newFixture(t)
	r := chi.NewRouter()
	NewHandler(nil, f.svc).MountRoutes(r)
	return r, f
}

func TestItemRoutesRoundTrip(t *testing.T) {
	router, f := newTestRouter(t)

	body := `{"item_code":"K-1","name":"Key blank","category":` + strconv.FormatInt(f.category.ID, 10) +
		`,"owner_department":` + strconv.FormatInt(f.dept.ID, 10) +
		`,"unit_of_measure":` + strconv.FormatInt(f.unit.ID, 10) + `,"quantity":3,"low_stock_threshold":5}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/items/", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created Item
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.Equal(t, "K-1", created.ItemCode)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/items/"+strconv.FormatInt(created.ID, 10), nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/items/no-barcode", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var noBarcode []Item
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &noBarcode))
	require.Len(t, noBarcode, 1)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/items/", strings.NewReader(body)))
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/items/"+strconv.FormatInt(created.ID, 10), nil))
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/items/"+strconv.FormatInt(created.ID, 10), nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateItemWithMissingCategoryIs422(t *testing.T) {
	router, f := newTestRouter(t)
	body := `{"item_code":"K-2","name":"Key","category":9999,"owner_department":` + strconv.FormatInt(f.dept.ID, 10) +
		`,"unit_of_measure":` + strconv.FormatInt(f.unit.ID, 10) + `}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/items/", strings.NewReader(body)))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
}

func TestValidationProblemListsFields(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/departments/", strings.NewReader(`{"name":""}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), `"name":"required"`)
}

func TestDeleteDepartmentInUse(t *testing.T) {
	router, f := newTestRouter(t)
	body := `{"employee_number":"123","first_name":"A","last_name":"B","department_id":` + strconv.FormatInt(f.dept.ID, 10) + `}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/employees/", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/departments/"+strconv.FormatInt(f.dept.ID, 10), nil))
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/employees/number/123", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}
