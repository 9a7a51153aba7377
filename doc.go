/*
go-smilecam turns a live camera feed into a smile game.  Faces are detected on
every frame, given a stable label by spatial proximity (no biometric matching),
and each accepted smile earns points.  Reaching the reward threshold fires a
reward and resets the balance.  Annotated frames and game events are streamed
to observers in near real time.

The per frame work is driven by the pipeline package, identities are assigned
by the tracker package and points are kept by the game package.  Events flow
out of the pipeline on a channel and are delivered to observers by the web
package.

See cmd/smilecam for the server binary.
*/
package smilecam
