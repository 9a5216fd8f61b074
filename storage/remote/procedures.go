// Package remote exposes a storage.Backend over Connect RPC and provides the
// matching client backend. Importing the package registers the "remote"
// driver, which dials the URL from storage.Config.
//
// Messages use the protobuf well-known wrapper types, so the service needs no
// generated code:
//
//	Exists(StringValue) BoolValue
//	Read(StringValue) BytesValue
//	Write(BytesValue) Empty          name in the Gamesave-Name header
//	Delete(StringValue) Empty
//	ResolvePath(StringValue) StringValue
//	List(Empty) ListValue
package remote

// ServiceName is the fully-qualified Connect service name.
const ServiceName = "gamesave.storage.v1.StorageService"

// NameHeader carries the entry name on Write requests.
const NameHeader = "Gamesave-Name"

const (
	existsProcedure      = "/" + ServiceName + "/Exists"
	readProcedure        = "/" + ServiceName + "/Read"
	writeProcedure       = "/" + ServiceName + "/Write"
	deleteProcedure      = "/" + ServiceName + "/Delete"
	resolvePathProcedure = "/" + ServiceName + "/ResolvePath"
	listProcedure        = "/" + ServiceName + "/List"
)
