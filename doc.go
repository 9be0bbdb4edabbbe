/*
Package lsim provides an event-driven digital logic simulator.

A Circuit is a static graph of components placed on a grid and connected by
named nets. Components are created by a Factory that describes their ports,
attributes and behavior. Circuits can be placed as sub-circuits in other
circuits through their own Factory, and a single Circuit can be instantiated
any number of times.

A Propagator simulates a root circuit. It keeps a tree of CircuitState, one per
sub-circuit instance, holding net values and component private data. Changes
to component outputs are scheduled as timed events and applied in order; the
values of all the drivers of a net are combined into the net value, and
components whose inputs changed are evaluated again. Propagation stops when no
events are left, or when a circuit fails to settle after a fixed number of
steps, in which case it is reported as oscillating.

Values are bit vectors of up to 64 bits where each bit is 0, 1, Unknown
(floating) or Error (conflict). Unknown is the value of undriven nets; two
drivers disagreeing on a bit produce Error.

A Session wraps a propagator with a clock driver and serializes ticks, pokes
and circuit edits. Components for common gates, plexers, arithmetic, memory
and I/O are provided by the hwlib package.

*/
package lsim
