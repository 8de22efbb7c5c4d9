// Package models contains the GORM persistence models and their mappers.
// Domain types stay free of ORM tags; repositories convert at the boundary.
//
// Table names resolve through the gorm namer, so a handle opened with a
// "co." prefix reads and writes co.sales_plans, co.visits and so on.
package models
