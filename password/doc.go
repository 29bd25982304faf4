// Package password implements Argon2id credential hashing with
// configurable memory, time, and parallelism costs.
//
// Hashes use the PHC string format ($argon2id$v=...$m=...,t=...,p=...$salt$key)
// so parameters travel with the hash and cost upgrades can be detected
// at verification time. Verification is fail-closed: any parse or
// comparison problem reads as a mismatch.
package password
