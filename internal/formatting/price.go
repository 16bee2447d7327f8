package formatting

import "fmt"

// FormatPrice форматирует сумму из копеек в рубли
func FormatPrice(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d ₽", sign, amount/100, amount%100)
}

// FormatPriceShort форматирует сумму без копеек если они равны 0
func FormatPriceShort(amount int64) string {
	if amount%100 == 0 {
		return fmt.Sprintf("%d ₽", amount/100)
	}
	return FormatPrice(amount)
}
