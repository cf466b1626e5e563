// Package models contains the GORM models of the ledger tables.
// Domain entities carry no ORM tags; each model converts to and from its
// entity with ToDomain and a ...FromDomain constructor.
package models
