// Package backend exposes one typed service per backend resource. Every
// call goes through the gateway, so requests are validated before they
// leave the process and responses are validated before they are returned.
package backend

import (
	"go.uber.org/zap"

	"storepos/internal/gateway"
)

type Services struct {
	Auth      *Auth
	Inventory *Inventory
	Customers *Customers
	Employees *Employees
	Coupons   *Coupons
	Sales     *Sales
	Rentals   *Rentals
	Returns   *Returns
	Reports   *Reports
}

func New(client *gateway.Client, session SessionWriter, logger *zap.Logger) *Services {
	return &Services{
		Auth:      NewAuth(client, session, logger),
		Inventory: NewInventory(client),
		Customers: NewCustomers(client),
		Employees: NewEmployees(client),
		Coupons:   NewCoupons(client),
		Sales:     NewSales(client),
		Rentals:   NewRentals(client),
		Returns:   NewReturns(client),
		Reports:   NewReports(client),
	}
}
