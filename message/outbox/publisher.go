package outbox

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	watermillSQL "github.com/ThreeDotsLabs/watermill-sql/v2/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"
	observability "github.com/george-bobby/eventtts-sap-sub000/trace"
	"github.com/jmoiron/sqlx"
)

// topic of the outbox table, every event is enveloped with its destination topic
const topic = "allocation_outbox"

// NewTxPublisher writes messages into the outbox within tx.
// Nothing reaches the broker unless tx commits.
func NewTxPublisher(ctx context.Context, tx *sqlx.Tx) (message.Publisher, error) {
	sqlPublisher, err := watermillSQL.NewPublisher(
		tx,
		watermillSQL.PublisherConfig{SchemaAdapter: watermillSQL.DefaultPostgreSQLSchema{}},
		log.NewWatermill(log.FromContext(ctx)),
	)
	if err != nil {
		return nil, fmt.Errorf("could not create outbox publisher: %w", err)
	}

	var pub message.Publisher = forwarder.NewPublisher(sqlPublisher, forwarder.PublisherConfig{
		ForwarderTopic: topic,
	})
	pub = log.CorrelationPublisherDecorator{Publisher: pub}
	pub = observability.TracingPublisherDecorator{Publisher: pub}

	return pub, nil
}
