// Package lifecycle defines the start/stop model shared by every resource kind.
package lifecycle

import (
	"fmt"
	"strings"
)

// Action is the lifecycle transition applied to a resource.
type Action int

const (
	Start Action = iota
	Stop
)

func (a Action) String() string {
	switch a {
	case Start:
		return "start"
	case Stop:
		return "stop"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// ParseAction converts "start" or "stop" into an Action.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "start":
		return Start, nil
	case "stop":
		return Stop, nil
	default:
		return 0, fmt.Errorf("unknown action %q (must be start or stop)", s)
	}
}

// Kind identifies a family of resources sharing one control-plane API.
type Kind string

const (
	KindAlarm            Kind = "alarm"
	KindDatabaseCluster  Kind = "database_cluster"
	KindContainerService Kind = "container_service"
	KindWarehouseCluster Kind = "warehouse_cluster"
	KindInstance         Kind = "instance"
	KindDatabaseInstance Kind = "database_instance"
)

// Kinds returns every supported kind in a stable order.
func Kinds() []Kind {
	return []Kind{
		KindAlarm,
		KindDatabaseCluster,
		KindContainerService,
		KindWarehouseCluster,
		KindInstance,
		KindDatabaseInstance,
	}
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown kind %q", s)
}

// ResourceTypeTag selects the discovery namespace, e.g. "ecs:service".
type ResourceTypeTag string

// TagFilter matches resources whose tag Key has any of Values.
// Multiple filters are ANDed.
type TagFilter struct {
	Key    string   `json:"key" toml:"key" yaml:"key"`
	Values []string `json:"values" toml:"values" yaml:"values"`
}

// Validate checks the filter has a key and at least one value.
func (f TagFilter) Validate() error {
	if strings.TrimSpace(f.Key) == "" {
		return fmt.Errorf("tag filter: key is required")
	}
	if len(f.Values) == 0 {
		return fmt.Errorf("tag filter %q: at least one value required", f.Key)
	}
	return nil
}

func (f TagFilter) String() string {
	return f.Key + "=" + strings.Join(f.Values, ",")
}

// ParseTagFilter parses the CLI form "key=v1,v2".
func ParseTagFilter(s string) (TagFilter, error) {
	key, raw, ok := strings.Cut(s, "=")
	if !ok {
		return TagFilter{}, fmt.Errorf("tag filter %q: expected key=value[,value]", s)
	}

	var values []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}

	f := TagFilter{Key: strings.TrimSpace(key), Values: values}
	if err := f.Validate(); err != nil {
		return TagFilter{}, err
	}
	return f, nil
}

// ValidateFilters checks every filter in a query.
func ValidateFilters(filters []TagFilter) error {
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Request pairs an action with the resource it applies to.
type Request struct {
	Action Action
	Kind   Kind
	Ref    Ref
}

// Outcome is the result of one Request. Err is nil on success. DryRun
// outcomes made no control-plane call.
type Outcome struct {
	Request Request
	Err     error
	Class   ErrorKind
	DryRun  bool
}

// OK reports whether the action succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}
