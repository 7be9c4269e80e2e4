package register

import (
	"github.com/angelmondragon/readerpos/internal/orderentry"
	"github.com/angelmondragon/readerpos/internal/session"
)

type ChargeResponse struct {
	Payment *orderentry.ChargeResult `json:"payment"`
	View    session.View             `json:"view"`
}
