package ebs

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Alarm keeps the partitions of the single monitored object of an account.
//
// Partition state is cached: call Refresh to get fresh data from the server.
// An Alarm is not safe for concurrent use.
type Alarm struct {
	cli        *Client
	object     ID
	partitions map[int]Partition
}

// Dial logs in, discovers the monitored object and loads its partitions.
func Dial(addr, email, pin string, opts ...Option) (*Alarm, error) {
	cli := New(addr, opts...)
	if err := cli.Login(email, pin); err != nil {
		return nil, err
	}

	objects, err := cli.CheckUpdate()
	if err != nil {
		return nil, err
	}
	switch len(objects) {
	case 0:
		return nil, ErrNoObjects
	case 1:
	default:
		return nil, fmt.Errorf("got %d objects: %w", len(objects), ErrMultipleObjects)
	}

	alarm := &Alarm{
		cli:        cli,
		object:     objects[0].ID,
		partitions: map[int]Partition{},
	}
	log.Debug("found object", "id", alarm.object)
	if err := alarm.Refresh(); err != nil {
		return nil, err
	}
	return alarm, nil
}

func (a *Alarm) Client() *Client { return a.cli }
func (a *Alarm) ObjectID() ID    { return a.object }

// Refresh reloads all partitions from the server. On failure the previously
// loaded partitions are kept.
func (a *Alarm) Refresh() error {
	objects, err := a.cli.FullUpdate(a.object)
	if err != nil {
		return fmt.Errorf("could not refresh partitions: %w", err)
	}
	if len(objects) == 0 {
		return fmt.Errorf("could not refresh partitions: object %s not in response", a.object)
	}

	partitions := make(map[int]Partition, len(objects[0].Partitions))
	for _, p := range objects[0].Partitions {
		partitions[p.Number] = p
	}
	a.partitions = partitions
	log.Debug("refreshed partitions", "count", len(partitions))
	return nil
}

func (a *Alarm) Partition(n int) (Partition, error) {
	p, ok := a.partitions[n]
	if !ok {
		return Partition{}, fmt.Errorf("partition %d: %w", n, ErrPartitionNotFound)
	}
	return p, nil
}

// Partitions returns the cached partitions sorted by number.
func (a *Alarm) Partitions() []Partition {
	result := make([]Partition, 0, len(a.partitions))
	for _, p := range a.partitions {
		result = append(result, p)
	}
	slices.SortFunc(result, func(x, y Partition) int {
		return x.Number - y.Number
	})
	return result
}

func (a *Alarm) State(n int) (State, error) {
	p, err := a.Partition(n)
	if err != nil {
		return StateDisarmed, err
	}
	return p.State, nil
}

// IsArmed reports whether the partition is armed, as of the last Refresh.
// Partial and night arming count as armed.
func (a *Alarm) IsArmed(n int) (bool, error) {
	state, err := a.State(n)
	if err != nil {
		return false, err
	}
	return state.Armed(), nil
}

// SetArmed arms or disarms the given partition.
func (a *Alarm) SetArmed(n int, arm bool) error {
	state := StateDisarmed
	if arm {
		state = StateArmed
	}
	return a.SetState(n, state)
}

// SetState changes the state of the given partition and, if the server
// accepted it, refreshes all partitions. If the change fails the cache is
// left as it was.
func (a *Alarm) SetState(n int, state State) error {
	p, err := a.Partition(n)
	if err != nil {
		return err
	}
	log.Debug("set state", "partition", n, "state", state)
	if err := a.cli.SetPartitionState(p.ID, state); err != nil {
		return err
	}
	return a.Refresh()
}
