package bot

import (
	"strconv"
	"strings"
)

// cbKind — тип нажатой inline-кнопки; полезная нагрузка разбирается один раз
// и дальше ходит по коду в типизированном виде.
type cbKind int

const (
	cbUnknown cbKind = iota
	cbNoop
	cbCategoryView
	cbProductView
	cbAddToCart
	cbCartView
	cbCartInc
	cbCartDec
	cbCartDel
	cbCartClear
	cbCheckoutStart
	cbDiscountEnter
	cbDiscountRemove
	cbOrderView
	cbOrderReceipt
	cbAdminOrderStatus
	cbAdminOrderCancel
	cbAdminUserBlock
	cbAdminUserPromote
	cbAdminUserDelete
	cbAdminProductToggle
	cbAdminProductDelete
	cbAdminProductEdit
	cbAdminCategoryToggle
	cbAdminDiscountToggle
	cbPaymentVerify
	cbPaymentReject
	cbPage
	cbBackMain
)

type cbCommand struct {
	Kind cbKind
	ID   uint   // сущность, к которой относится кнопка
	Arg  string // статус, имя списка и т.п.
	Page int
}

// parseCallback разбирает полезную нагрузку вида prefix_action_id.
// Непонятные строки превращаются в cbUnknown и подтверждаются как no-op.
func parseCallback(data string) cbCommand {
	parts := strings.Split(data, "_")
	id := func(idx int) uint {
		if idx >= len(parts) {
			return 0
		}
		v, _ := strconv.ParseUint(parts[idx], 10, 64)
		return uint(v)
	}

	switch {
	case data == "noop":
		return cbCommand{Kind: cbNoop}
	case data == "cart":
		return cbCommand{Kind: cbCartView}
	case data == "checkout":
		return cbCommand{Kind: cbCheckoutStart}
	case data == "discount_enter":
		return cbCommand{Kind: cbDiscountEnter}
	case data == "discount_remove":
		return cbCommand{Kind: cbDiscountRemove}
	case data == "cart_clear":
		return cbCommand{Kind: cbCartClear}
	case data == "back_main":
		return cbCommand{Kind: cbBackMain}
	}

	if len(parts) < 2 {
		return cbCommand{Kind: cbUnknown}
	}

	switch parts[0] {
	case "category":
		return cbCommand{Kind: cbCategoryView, ID: id(1)}
	case "product":
		return cbCommand{Kind: cbProductView, ID: id(1)}
	case "buy":
		return cbCommand{Kind: cbAddToCart, ID: id(1)}
	case "cart":
		switch parts[1] {
		case "inc":
			return cbCommand{Kind: cbCartInc, ID: id(2)}
		case "dec":
			return cbCommand{Kind: cbCartDec, ID: id(2)}
		case "del":
			return cbCommand{Kind: cbCartDel, ID: id(2)}
		}
	case "order":
		switch parts[1] {
		case "view":
			return cbCommand{Kind: cbOrderView, ID: id(2)}
		case "receipt":
			return cbCommand{Kind: cbOrderReceipt, ID: id(2)}
		}
	case "ostatus":
		// ostatus_<status>_<id>
		return cbCommand{Kind: cbAdminOrderStatus, Arg: parts[1], ID: id(2)}
	case "ocancel":
		return cbCommand{Kind: cbAdminOrderCancel, ID: id(1)}
	case "ublock":
		return cbCommand{Kind: cbAdminUserBlock, ID: id(1)}
	case "uadmin":
		return cbCommand{Kind: cbAdminUserPromote, ID: id(1)}
	case "udelete":
		return cbCommand{Kind: cbAdminUserDelete, ID: id(1)}
	case "ptoggle":
		return cbCommand{Kind: cbAdminProductToggle, ID: id(1)}
	case "pdelete":
		return cbCommand{Kind: cbAdminProductDelete, ID: id(1)}
	case "pedit":
		return cbCommand{Kind: cbAdminProductEdit, ID: id(1)}
	case "ctoggle":
		return cbCommand{Kind: cbAdminCategoryToggle, ID: id(1)}
	case "dtoggle":
		return cbCommand{Kind: cbAdminDiscountToggle, ID: id(1)}
	case "payok":
		return cbCommand{Kind: cbPaymentVerify, ID: id(1)}
	case "payno":
		return cbCommand{Kind: cbPaymentReject, ID: id(1)}
	case "page":
		// page_<list>_<n>
		if len(parts) >= 3 {
			n, _ := strconv.Atoi(parts[2])
			return cbCommand{Kind: cbPage, Arg: parts[1], Page: n}
		}
	}
	return cbCommand{Kind: cbUnknown}
}
