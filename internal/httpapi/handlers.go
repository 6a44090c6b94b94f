package httpapi

import (
	"net/http"
	"time"

	"storepos/internal/domain"
)

func (a *API) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := a.service.ListItems(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	item, err := a.service.GetItem(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (a *API) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req domain.ItemCreateRequest
	if err := decodeJSON(r, &req, false); err != nil {
		a.fail(w, r, err)
		return
	}
	item, err := a.service.CreateItem(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (a *API) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req domain.ItemUpdateRequest
	if err := decodeJSON(r, &req, false); err != nil {
		a.fail(w, r, err)
		return
	}
	item, err := a.service.UpdateItem(r.Context(), id, req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (a *API) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.service.DeleteItem(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := a.service.ListCustomers(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (a *API) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := a.service.GetCustomer(r.Context(), pathID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.CustomerCreateRequest
	if err := decodeJSON(r, &req, false); err != nil {
		a.fail(w, r, err)
		return
	}
	c, err := a.service.CreateCustomer(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (a *API) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.CustomerUpdateRequest
	if err := decodeJSON(r, &req, false); err != nil {
		a.fail(w, r, err)
		return
	}
	c, err := a.service.UpdateCustomer(r.Context(), pathID(r), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteCustomer(r.Context(), pathID(r)); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := a.service.ListEmployees(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, employees)
}

func (a *API) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := a.service.GetEmployee(r.Context(), pathID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

func (a *API) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req domain.EmployeeCreateRequest
	if err := decodeJSON(r, &req, false); err != nil {
		a.fail(w, r, err)
		return
	}
	emp, err := a.service.CreateEmployee(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, emp)
}

func (a *API) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	var req domain.EmployeeUpdateRequest
	if err := decodeJSON(r, &req, false); err != nil {
		a.fail(w, r, err)
		return
	}
	emp, err := a.service.UpdateEmployee(r.Context(), pathID(r), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

func (a *API) handleToggleEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := a.service.ToggleEmployeeStatus(r.Context(), pathID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

func (a *API) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteEmployee(r.Context(), pathID(r)); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := a.service.ListCoupons(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, coupons)
}

func (a *API) handleGetCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := a.service.GetCoupon(r.Context(), pathID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) handleCreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req domain.CouponCreateRequest
	if err := decodeJSON(r, &req, false); err != nil {
		a.fail(w, r, err)
		return
	}
	c, err := a.service.CreateCoupon(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (a *API) handleUpdateCoupon(w http.ResponseWriter, r *http.Request) {
	var req domain.CouponUpdateRequest
	if err := decodeJSON(r, &req, false); err != nil {
		a.fail(w, r, err)
		return
	}
	c, err := a.service.UpdateCoupon(r.Context(), pathID(r), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) handleDeleteCoupon(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteCoupon(r.Context(), pathID(r)); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListSales(w http.ResponseWriter, r *http.Request) {
	sales, err := a.service.ListSales(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

func (a *API) handleGetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := a.service.GetSale(r.Context(), pathID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (a *API) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleCreateRequest
	if err := decodeJSON(r, &req, false); err != nil {
		a.fail(w, r, err)
		return
	}
	sale, err := a.service.CreateSale(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}

func (a *API) handleAddSaleItem(w http.ResponseWriter, r *http.Request) {
	var req domain.AddItemRequest
	if err := decodeJSON(r, &req, false); err != nil {
		a.fail(w, r, err)
		return
	}
	sale, err := a.service.AddSaleItem(r.Context(), pathID(r), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (a *API) handleFinalizeSale(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleFinalizeRequest
	if err := decodeJSON(r, &req, false); err != nil {
		a.fail(w, r, err)
		return
	}
	sale, err := a.service.FinalizeSale(r.Context(), pathID(r), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (a *API) handleCancelSale(w http.ResponseWriter, r *http.Request) {
	sale, err := a.service.CancelSale(r.Context(), pathID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (a *API) handleListRentals(w http.ResponseWriter, r *http.Request) {
	rentals, err := a.service.ListRentals(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rentals)
}

func (a *API) handleGetRental(w http.ResponseWriter, r *http.Request) {
	rental, err := a.service.GetRental(r.Context(), pathID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

func (a *API) handleCreateRental(w http.ResponseWriter, r *http.Request) {
	var req domain.RentalCreateRequest
	if err := decodeJSON(r, &req, false); err != nil {
		a.fail(w, r, err)
		return
	}
	rental, err := a.service.CreateRental(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rental)
}

func (a *API) handleAddRentalItem(w http.ResponseWriter, r *http.Request) {
	var req domain.AddItemRequest
	if err := decodeJSON(r, &req, false); err != nil {
		a.fail(w, r, err)
		return
	}
	rental, err := a.service.AddRentalItem(r.Context(), pathID(r), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

func (a *API) handleRemoveRentalItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathInt(r, "itemId")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	rental, err := a.service.RemoveRentalItem(r.Context(), pathID(r), itemID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

func (a *API) handleFinalizeRental(w http.ResponseWriter, r *http.Request) {
	var req domain.RentalFinalizeRequest
	if err := decodeJSON(r, &req, true); err != nil {
		a.fail(w, r, err)
		return
	}
	rental, err := a.service.FinalizeRental(r.Context(), pathID(r), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

func (a *API) handleMarkRentalReturned(w http.ResponseWriter, r *http.Request) {
	var req domain.RentalReturnRequest
	if err := decodeJSON(r, &req, true); err != nil {
		a.fail(w, r, err)
		return
	}
	rental, err := a.service.MarkRentalReturned(r.Context(), pathID(r), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

func (a *API) handleCancelRental(w http.ResponseWriter, r *http.Request) {
	rental, err := a.service.CancelRental(r.Context(), pathID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

func (a *API) handleListReturns(w http.ResponseWriter, r *http.Request) {
	records, err := a.service.ListReturns(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (a *API) handleReturnSale(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleReturnRequest
	if err := decodeJSON(r, &req, false); err != nil {
		a.fail(w, r, err)
		return
	}
	rec, err := a.service.RecordSaleReturn(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (a *API) handleReturnRental(w http.ResponseWriter, r *http.Request) {
	var req domain.RentalReturnRecordRequest
	if err := decodeJSON(r, &req, false); err != nil {
		a.fail(w, r, err)
		return
	}
	rec, err := a.service.RecordRentalReturn(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// handleLateFee takes an optional RFC 3339 returnedAt query parameter.
func (a *API) handleLateFee(w http.ResponseWriter, r *http.Request) {
	var returnedAt *time.Time
	if raw := r.URL.Query().Get("returnedAt"); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			a.fail(w, r, domain.NewValidationError("returnedAt", "must be an RFC 3339 timestamp"))
			return
		}
		returnedAt = &at
	}
	quote, err := a.service.LateFee(r.Context(), pathID(r), returnedAt)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (a *API) handleSalesReport(w http.ResponseWriter, r *http.Request) {
	report, err := a.service.SalesReport(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleRentalReport(w http.ResponseWriter, r *http.Request) {
	report, err := a.service.RentalReport(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleInventoryReport(w http.ResponseWriter, r *http.Request) {
	report, err := a.service.InventoryReport(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
