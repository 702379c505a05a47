package services

import (
	"fmt"
	"sync"
)

// registry is the default ServiceRegistry implementation. Registration order
// is preserved because spawn order is declaration order.
type registry struct {
	mu      sync.RWMutex
	byLabel map[string]Service
	ordered []string
}

// NewRegistry creates an empty service registry.
func NewRegistry() ServiceRegistry {
	return &registry{
		byLabel: make(map[string]Service),
	}
}

// Register implements the ServiceRegistry interface
func (r *registry) Register(service Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	label := service.GetLabel()
	if label == "" {
		return fmt.Errorf("service label must not be empty")
	}
	if _, exists := r.byLabel[label]; exists {
		return fmt.Errorf("service %s is already registered", label)
	}

	r.byLabel[label] = service
	r.ordered = append(r.ordered, label)
	return nil
}

// Unregister implements the ServiceRegistry interface
func (r *registry) Unregister(label string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byLabel[label]; !exists {
		return fmt.Errorf("service %s not found", label)
	}

	delete(r.byLabel, label)
	for i, l := range r.ordered {
		if l == label {
			r.ordered = append(r.ordered[:i], r.ordered[i+1:]...)
			break
		}
	}
	return nil
}

// Get implements the ServiceRegistry interface
func (r *registry) Get(label string) (Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	service, exists := r.byLabel[label]
	return service, exists
}

// GetAll implements the ServiceRegistry interface
func (r *registry) GetAll() []Service {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]Service, 0, len(r.ordered))
	for _, label := range r.ordered {
		all = append(all, r.byLabel[label])
	}
	return all
}

// GetByType implements the ServiceRegistry interface
func (r *registry) GetByType(serviceType ServiceType) []Service {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []Service
	for _, label := range r.ordered {
		if service := r.byLabel[label]; service.GetType() == serviceType {
			matched = append(matched, service)
		}
	}
	return matched
}
