// Package engine is a compact rigid multibody core: bodies with collision
// shapes, spherical joints, translational and rotational spring-dampers,
// and fixed-step stepping with either non-smooth (NSC) or smooth (SMC)
// contact.
//
// Stepping follows the usual velocity-level scheme:
//
//  1. accumulate gravity, spring-damper and (SMC) penalty contact forces
//  2. integrate velocities
//  3. solve joint and (NSC) contact constraints with projected Gauss-Seidel
//  4. integrate positions
//
// Joint reaction impulses are warm-started across steps and reported as
// forces, which is how yarn tension is measured.
package engine
