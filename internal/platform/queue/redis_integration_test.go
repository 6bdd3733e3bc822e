//go:build integration

package queue_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/platform/config"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/platform/queue"
)

func TestRedisBroker(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Redis Broker Integration Suite")
}

var (
	redisContainer testcontainers.Container
	rdb            *redis.Client
)

var _ = BeforeSuite(func() {
	ctx := context.Background()
	var err error
	redisContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	Expect(err).NotTo(HaveOccurred())

	addr, err := redisContainer.Endpoint(ctx, "")
	Expect(err).NotTo(HaveOccurred())

	rdb, err = queue.Connect(ctx, &config.Config{RedisAddr: addr})
	Expect(err).NotTo(HaveOccurred())
})

var _ = AfterSuite(func() {
	if rdb != nil {
		_ = rdb.Close()
	}
	if redisContainer != nil {
		_ = redisContainer.Terminate(context.Background())
	}
})

func decodeRequest(raw []byte) (queue.Request, queue.Reply) {
	var req queue.Request
	Expect(json.Unmarshal(raw, &req)).To(Succeed())
	return req, queue.Reply{ID: req.ID, Success: true}
}

func encodeReply(reply queue.Reply) []byte {
	raw, err := json.Marshal(reply)
	Expect(err).NotTo(HaveOccurred())
	return raw
}

var _ = Describe("RedisBroker", func() {
	var broker *queue.RedisBroker

	BeforeEach(func() {
		Expect(rdb.FlushDB(context.Background()).Err()).To(Succeed())
		broker = queue.NewRedisBroker(rdb)
	})

	It("pops messages in push order", func() {
		ctx := context.Background()
		Expect(broker.Push(ctx, "q", []byte("first"), 0)).To(Succeed())
		Expect(broker.Push(ctx, "q", []byte("second"), 0)).To(Succeed())

		key, payload, err := broker.Pop(ctx, time.Second, "q")
		Expect(err).NotTo(HaveOccurred())
		Expect(key).To(Equal("q"))
		Expect(string(payload)).To(Equal("first"))

		_, payload, err = broker.Pop(ctx, time.Second, "q")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(payload)).To(Equal("second"))
	})

	It("expires lists pushed with a ttl", func() {
		ctx := context.Background()
		Expect(broker.Push(ctx, "reply", []byte("r"), 5*time.Second)).To(Succeed())

		ttl, err := rdb.TTL(ctx, "reply").Result()
		Expect(err).NotTo(HaveOccurred())
		Expect(ttl).To(BeNumerically(">", 0))
		Expect(ttl).To(BeNumerically("<=", 5*time.Second))
	})

	It("reports ErrEmpty when nothing arrives in time", func() {
		_, _, err := broker.Pop(context.Background(), time.Second, "idle")
		Expect(err).To(MatchError(queue.ErrEmpty))
	})

	It("carries a call and its reply end to end", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		go func() {
			defer GinkgoRecover()
			_, raw, err := broker.Pop(ctx, 5*time.Second, "users_queue")
			Expect(err).NotTo(HaveOccurred())
			req, reply := decodeRequest(raw)
			reply.Data = []byte(`{"pong":true}`)
			Expect(broker.Push(ctx, req.ReplyTo, encodeReply(reply), 5*time.Second)).To(Succeed())
		}()

		client := queue.NewClient(broker, "users_queue", 5*time.Second)
		var out struct {
			Pong bool `json:"pong"`
		}
		Expect(client.Call(ctx, "ping", map[string]string{}, &out)).To(Succeed())
		Expect(out.Pong).To(BeTrue())
	})

	It("is unavailable once the connection is gone", func() {
		closed := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
		_ = closed.Close()
		err := queue.NewRedisBroker(closed).Push(context.Background(), "q", []byte("x"), 0)
		Expect(common.KindOf(err)).To(Equal(common.KindUnavailable))
	})
})
