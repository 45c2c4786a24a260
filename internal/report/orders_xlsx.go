package report

import (
	"fmt"
	"io"
	"strconv"

	"freshcart/internal/domain"

	"github.com/tealeg/xlsx"
)

// ContentType is the media type of the workbook written by WriteOrders.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const timeLayout = "2006-01-02 15:04:05"

var orderHeaders = []string{
	"Order ID", "Group ID", "User ID", "Buyer", "Email", "Phone", "Address",
	"Product ID", "Product", "Quantity", "Total Price", "Status", "Created At",
}

// WriteOrders renders orders as a single-sheet workbook.
func WriteOrders(w io.Writer, orders []*domain.OrderLine) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range orderHeaders {
		header.AddCell().SetString(h)
	}

	for _, o := range orders {
		row := sheet.AddRow()

		row.AddCell().SetInt64(o.ID)
		groupID := ""
		if o.GroupID != nil {
			groupID = o.GroupID.String()
		}
		row.AddCell().SetString(groupID)
		userID := ""
		if o.UserID != nil {
			userID = strconv.FormatInt(*o.UserID, 10)
		}
		row.AddCell().SetString(userID)
		row.AddCell().SetString(o.Name)
		row.AddCell().SetString(o.Email)
		row.AddCell().SetString(o.Phone)
		row.AddCell().SetString(o.Address)
		row.AddCell().SetInt64(o.ProductID)
		row.AddCell().SetString(o.ProductName)
		row.AddCell().SetInt(o.Quantity)
		row.AddCell().SetFloatWithFormat(o.TotalPrice.InexactFloat64(), "0.00")
		row.AddCell().SetString(string(o.Status))
		row.AddCell().SetString(o.CreatedAt.Format(timeLayout))
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
