package exprql_test

import (
	"testing"

	"github.com/zoobzio/dbml"
	"github.com/zoobzio/exprql"
)

// testProject describes the users/orders/items schema shared by root tests.
func testProject() *dbml.Project {
	project := dbml.NewProject("test")

	users := dbml.NewTable("users")
	users.AddColumn(dbml.NewColumn("id", "bigint"))
	users.AddColumn(dbml.NewColumn("name", "varchar"))
	users.AddColumn(dbml.NewColumn("email", "varchar"))
	users.AddColumn(dbml.NewColumn("age", "int"))
	users.AddColumn(dbml.NewColumn("status", "varchar"))
	users.AddColumn(dbml.NewColumn("active", "boolean"))
	users.AddColumn(dbml.NewColumn("address_city", "varchar"))
	project.AddTable(users)

	orders := dbml.NewTable("orders")
	orders.AddColumn(dbml.NewColumn("id", "bigint"))
	orders.AddColumn(dbml.NewColumn("user_id", "bigint"))
	orders.AddColumn(dbml.NewColumn("total", "numeric"))
	orders.AddColumn(dbml.NewColumn("status", "varchar"))
	project.AddTable(orders)

	items := dbml.NewTable("items")
	items.AddColumn(dbml.NewColumn("id", "bigint"))
	items.AddColumn(dbml.NewColumn("order_id", "bigint"))
	items.AddColumn(dbml.NewColumn("sku", "varchar"))
	items.AddColumn(dbml.NewColumn("qty", "int"))
	project.AddTable(items)

	return project
}

func newTestSchema(t *testing.T) *exprql.Schema {
	t.Helper()
	schema, err := exprql.NewSchema(testProject())
	if err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	schema.MustBind("User", "users").MustBind("Order", "orders").MustBind("Item", "items")
	if err := schema.Relate("User", "Orders", "Order", []string{"id"}, []string{"user_id"}); err != nil {
		t.Fatalf("Failed to relate User.Orders: %v", err)
	}
	if err := schema.Relate("Order", "Items", "Item", []string{"id"}, []string{"order_id"}); err != nil {
		t.Fatalf("Failed to relate Order.Items: %v", err)
	}
	return schema
}

func assertSQL(t *testing.T, expected, actual string) {
	t.Helper()
	if expected != actual {
		t.Errorf("SQL mismatch:\nExpected: %s\nActual:   %s", expected, actual)
	}
}
