package backend

import (
	"net/url"
	"strconv"
)

const (
	pathLogin            = "/auth/login"
	pathInventory        = "/inventory"
	pathUsers            = "/users"
	pathEmployees        = "/employees"
	pathCoupons          = "/coupons"
	pathSales            = "/sales"
	pathRentals          = "/rentals"
	pathReturns          = "/returns"
	pathReturnSale       = "/returns/sale"
	pathReturnRental     = "/returns/rental"
	pathLateFee          = "/returns/calculate-late-fee"
	pathReportsSales     = "/reports/sales"
	pathReportsRentals   = "/reports/rentals"
	pathReportsInventory = "/reports/inventory"
)

func byID(base string, id string) string {
	return base + "/" + url.PathEscape(id)
}

func itemByID(id int64) string {
	return pathInventory + "/" + strconv.FormatInt(id, 10)
}

func action(base string, id string, verb string) string {
	return byID(base, id) + "/" + verb
}

func rentalItem(rentalID string, itemID int64) string {
	return byID(pathRentals, rentalID) + "/items/" + strconv.FormatInt(itemID, 10)
}
