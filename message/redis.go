package message

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Transport struct {
	Publisher message.Publisher
	// NewSubscriber returns a subscriber consuming as the given consumer group.
	NewSubscriber func(consumerGroup string) (message.Subscriber, error)
}

func NewRedisTransport(rdb *redis.Client, watermillLogger watermill.LoggerAdapter) (Transport, error) {
	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: rdb,
	}, watermillLogger)
	if err != nil {
		return Transport{}, err
	}

	return Transport{
		Publisher: pub,
		NewSubscriber: func(consumerGroup string) (message.Subscriber, error) {
			return redisstream.NewSubscriber(redisstream.SubscriberConfig{
				Client:        rdb,
				ConsumerGroup: consumerGroup,
			}, watermillLogger)
		},
	}, nil
}

// NewGoChannelTransport keeps messages in process. Every handler gets its own copy of each message.
func NewGoChannelTransport(watermillLogger watermill.LoggerAdapter) Transport {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermillLogger)

	return Transport{
		Publisher: pubSub,
		NewSubscriber: func(string) (message.Subscriber, error) {
			return pubSub, nil
		},
	}
}

func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
	})
}
