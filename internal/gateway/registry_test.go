package gateway_test

import (
	"context"
	"log/slog"
	"os"

	internalerrors "github.com/drastik/donation-gateway/internal"
	"github.com/drastik/donation-gateway/internal/gateway"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// fakeClient satisfies gateway.Client for registry tests.
type fakeClient struct {
	gateway.Client
	name string
}

func (f *fakeClient) RetrieveCustomer(ctx context.Context, customerID string) (*gateway.Customer, error) {
	return &gateway.Customer{ID: customerID, Description: f.name}, nil
}

var _ = Describe("Registry", func() {
	var registry *gateway.Registry

	BeforeEach(func() {
		registry = gateway.NewRegistry()
	})

	It("should return an error for an unknown processor", func() {
		_, err := registry.Get("stripe")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("not registered"))
	})

	It("should store and return an injected client", func() {
		registry.Put("stripe", &fakeClient{name: "primary"})

		client, err := registry.Get("stripe")
		Expect(err).NotTo(HaveOccurred())

		cust, err := client.RetrieveCustomer(context.Background(), "cus_1")
		Expect(err).NotTo(HaveOccurred())
		Expect(cust.Description).To(Equal("primary"))
	})

	It("should replace a client registered under the same name", func() {
		registry.Put("stripe", &fakeClient{name: "old"})
		registry.Put("stripe", &fakeClient{name: "new"})

		client, err := registry.Get("stripe")
		Expect(err).NotTo(HaveOccurred())

		cust, err := client.RetrieveCustomer(context.Background(), "cus_1")
		Expect(err).NotTo(HaveOccurred())
		Expect(cust.Description).To(Equal("new"))
	})

	It("should build a client from processor configuration", func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		cfg := internalerrors.StripeConfig{Name: "stripe", SecretKey: "sk_test_x"}

		client := registry.Register(cfg, logger)
		Expect(client).NotTo(BeNil())

		Expect(registry.Names()).To(ConsistOf("stripe"))
	})
})
