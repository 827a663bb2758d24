// Copyright 2018 The klaytn Authors
// This file is part of the klaytn library.
//
// The klaytn library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The klaytn library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the klaytn library. If not, see <http://www.gnu.org/licenses/>.

package simulation

import "github.com/pkg/errors"

// Library supplies named Protocol and Network configurations, the way
// §6 describes: loading them from RON/CSV on disk is a collaborator's
// job (this core only defines the lookup surface). Experiment and Test
// loading follow the same shape and are added here too so a disk-backed
// implementation has one interface to satisfy.
type Library interface {
	Protocol(name string) (Protocol, error)
	Network(name string) (Network, error)
	Experiment(name string) (Experiment, error)
	Test(name string) (Test, error)
}

// MapLibrary is an in-memory Library, sufficient for tests and for
// wiring cmd/simbad without a disk-backed config loader.
type MapLibrary struct {
	protocols   map[string]Protocol
	networks    map[string]Network
	experiments map[string]Experiment
	tests       map[string]Test
}

// NewMapLibrary creates an empty MapLibrary.
func NewMapLibrary() *MapLibrary {
	return &MapLibrary{
		protocols:   make(map[string]Protocol),
		networks:    make(map[string]Network),
		experiments: make(map[string]Experiment),
		tests:       make(map[string]Test),
	}
}

// AddProtocol registers p under its own Name.
func (l *MapLibrary) AddProtocol(p Protocol) { l.protocols[p.Name] = p }

// AddNetwork registers n under its own Name.
func (l *MapLibrary) AddNetwork(n Network) { l.networks[n.Name] = n }

// AddExperiment registers an Experiment under name.
func (l *MapLibrary) AddExperiment(name string, e Experiment) { l.experiments[name] = e }

// AddTest registers a Test under name.
func (l *MapLibrary) AddTest(name string, t Test) { l.tests[name] = t }

func (l *MapLibrary) Protocol(name string) (Protocol, error) {
	p, ok := l.protocols[name]
	if !ok {
		return Protocol{}, errors.Errorf("unknown protocol name: %s", name)
	}
	return p, nil
}

func (l *MapLibrary) Network(name string) (Network, error) {
	n, ok := l.networks[name]
	if !ok {
		return Network{}, errors.Errorf("unknown network name: %s", name)
	}
	return n, nil
}

func (l *MapLibrary) Experiment(name string) (Experiment, error) {
	e, ok := l.experiments[name]
	if !ok {
		return Experiment{}, errors.Errorf("unknown experiment name: %s", name)
	}
	return e, nil
}

func (l *MapLibrary) Test(name string) (Test, error) {
	t, ok := l.tests[name]
	if !ok {
		return Test{}, errors.Errorf("unknown test name: %s", name)
	}
	return t, nil
}
