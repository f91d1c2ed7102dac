package registry

import (
	"context"
	"fmt"

	clientv3 "go.etcd.io/etcd/client/v3"

	"subtitle-hub/pkg/config"
	"subtitle-hub/pkg/logger"
)

// ServiceRegistry registers the service into etcd under a TTL lease so load
// balancers can discover live instances. Entirely optional; the service runs
// fine without etcd.
type ServiceRegistry struct {
	client      *clientv3.Client
	serviceName string
	serviceID   string
	serviceAddr string
	ttl         int64
	leaseID     clientv3.LeaseID
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewServiceRegistry creates a new ServiceRegistry instance.
func NewServiceRegistry(cfg config.ServiceRegistryConfig, serviceAddr string) (*ServiceRegistry, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	serviceID := cfg.ServiceID
	if serviceID == "" {
		serviceID = serviceAddr
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &ServiceRegistry{
		client:      client,
		serviceName: cfg.ServiceName,
		serviceID:   serviceID,
		serviceAddr: serviceAddr,
		ttl:         int64(cfg.TTL.Seconds()),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Register registers service instance.
func (r *ServiceRegistry) Register() error {
	leaseResp, err := r.client.Grant(r.ctx, r.ttl)
	if err != nil {
		return fmt.Errorf("failed to grant lease: %w", err)
	}
	r.leaseID = leaseResp.ID

	key := fmt.Sprintf("/services/%s/%s", r.serviceName, r.serviceID)
	if _, err := r.client.Put(r.ctx, key, r.serviceAddr, clientv3.WithLease(r.leaseID)); err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	go r.keepAlive()

	logger.Infof("service registered key=%s addr=%s", key, r.serviceAddr)
	return nil
}

func (r *ServiceRegistry) keepAlive() {
	ch, err := r.client.KeepAlive(r.ctx, r.leaseID)
	if err != nil {
		logger.Errorf("failed to keep alive lease error=%v", err)
		return
	}
	for {
		select {
		case <-r.ctx.Done():
			return
		case ka := <-ch:
			if ka == nil {
				logger.Warnf("keep alive channel closed service=%s", r.serviceName)
				return
			}
		}
	}
}

// Deregister removes service registration.
func (r *ServiceRegistry) Deregister() error {
	r.cancel()
	if r.leaseID != 0 {
		if _, err := r.client.Revoke(context.Background(), r.leaseID); err != nil {
			logger.Warnf("failed to revoke lease error=%v", err)
		}
	}
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close etcd client: %w", err)
	}
	logger.Infof("service deregistered service_id=%s", r.serviceID)
	return nil
}
