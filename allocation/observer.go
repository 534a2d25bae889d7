package allocation

import "github.com/george-bobby/eventtts-sap-sub000/entities"

const (
	ResultReserved     = "reserved"
	ResultInsufficient = "insufficient"
	ResultError        = "error"
)

// Observer receives allocation outcomes, e.g. for metrics.
type Observer interface {
	ReservationFinished(result string, quantity int)
	TicketsReleased(quantity int)
	PoolChanged(capacity entities.CapacityRecord)
	EntryVerified(result string)
}

type noopObserver struct{}

func (noopObserver) ReservationFinished(string, int) {}
func (noopObserver) TicketsReleased(int) {}
func (noopObserver) PoolChanged(entities.CapacityRecord) {}
func (noopObserver) EntryVerified(string) {}
