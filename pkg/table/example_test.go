package table_test

import (
	"fmt"
	"strings"

	"github.com/ajitpratap0/tabula/pkg/table"
)

func ExampleTable_JoinOnColumns() {
	users := table.NewBuilder("id", "name")
	_ = users.AddRow("1", "Ada")
	_ = users.AddRow("2", "Grace")

	orders := table.NewBuilder("user_id", "item")
	_ = orders.AddRow("2", "compiler")
	_ = orders.AddRow("1", "engine")
	_ = orders.AddRow("2", "cobol")

	joined, err := users.Build().JoinOnColumns("id", orders.Build(), "user_id")
	if err != nil {
		panic(err)
	}
	sorted, _ := joined.SortColumn("item")
	fmt.Print(sorted)

	// Output:
	// ___________________________________
	// | id | item     | name  | user_id |
	// |----+----------+-------+---------|
	// | 2  | cobol    | Grace | 2       |
	// | 2  | compiler | Grace | 2       |
	// | 1  | engine   | Ada   | 1       |
	// |_________________________________|
}

func ExampleTable_GroupByColumn() {
	b := table.NewBuilder("k", "v")
	_ = b.AddRow("a", "1")
	_ = b.AddRow("a", "2")
	_ = b.AddRow("b", "3")

	grouped, err := b.Build().GroupByColumn("k",
		table.NewOp("v", func(values []string) string { return strings.Join(values, ",") }))
	if err != nil {
		panic(err)
	}
	for i := 0; i < grouped.RowCount(); i++ {
		row := grouped.Row(i)
		fmt.Printf("%s -> %s\n", row["k"], row["v"])
	}

	// Output:
	// a -> 1,2
	// b -> 3
}

func ExampleTable_CreateColumn() {
	b := table.NewBuilder("first", "last")
	_ = b.AddRow("Ada", "Lovelace")

	t, _ := b.Build().CreateColumn(table.NewMiOp([]string{"last", "first"}, "display",
		func(v []string) string { return v[0] + ", " + v[1] }))

	col, _ := t.Column("display")
	fmt.Println(col.Get(0))

	// Output:
	// Lovelace, Ada
}
