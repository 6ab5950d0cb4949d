package badger

import (
	"encoding/binary"
	"strconv"

	"github.com/jhoicas/partsbin/internal/domain/entity"
)

// Prefijos de llaves. Los registros usan id big-endian para que la iteración
// por prefijo devuelva el orden de id ascendente.
const (
	partPrefix        = "part:"
	projectPrefix     = "proj:"
	partTypePrefix    = "ptype:"
	storedFilePrefix  = "file:"
	oauthPrefix       = "oauth:"
	partTypeNameIndex = "ptypen:" // dueño + clave de nombre -> id
	fileNameIndex     = "filen:"  // nombre almacenado -> id
	filePartIndex     = "filep:"  // partID + fileID -> vacío
	seededKey         = "meta:seeded"
)

// Secuencias de ids por entidad.
const (
	partSeq       = "seq:part"
	projectSeq    = "seq:proj"
	partTypeSeq   = "seq:ptype"
	storedFileSeq = "seq:file"
)

func idKey(prefix string, id int64) []byte {
	buf := make([]byte, len(prefix)+8)
	n := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[n:], uint64(id))
	return buf
}

func idFromKey(prefix string, key []byte) int64 {
	return int64(binary.BigEndian.Uint64(key[len(prefix):]))
}

func makePartKey(id int64) []byte       { return idKey(partPrefix, id) }
func makeProjectKey(id int64) []byte    { return idKey(projectPrefix, id) }
func makePartTypeKey(id int64) []byte   { return idKey(partTypePrefix, id) }
func makeStoredFileKey(id int64) []byte { return idKey(storedFilePrefix, id) }

// ownerKey segmento de dueño: "g" para registros globales.
func ownerKey(owner *int) string {
	if owner == nil {
		return "g"
	}
	return strconv.Itoa(*owner)
}

// makePartTypeNameKey índice de unicidad de nombre por dueño.
// Format: prefix:owner:nameKey
func makePartTypeNameKey(owner *int, nameKey string) []byte {
	return []byte(partTypeNameIndex + ownerKey(owner) + ":" + nameKey)
}

func makeFileNameKey(fileName string) []byte {
	return []byte(fileNameIndex + fileName)
}

// makeFilePartKey índice de archivos por parte (borrado en cascada y listados).
// Format: prefix:partID:fileID
func makeFilePartKey(partID, fileID int64) []byte {
	buf := make([]byte, len(filePartIndex)+16)
	n := copy(buf, filePartIndex)
	binary.BigEndian.PutUint64(buf[n:], uint64(partID))
	binary.BigEndian.PutUint64(buf[n+8:], uint64(fileID))
	return buf
}

// makePartialFilePartKey prefijo de todos los archivos de una parte.
func makePartialFilePartKey(partID int64) []byte {
	return idKey(filePartIndex, partID)
}

// makeOAuthKey credencial exacta por dueño; el proveedor va en forma canónica.
// Format: prefix:owner:provider
func makeOAuthKey(owner *int, provider string) []byte {
	return []byte(makePartialOAuthKey(owner) + entity.ProviderKey(provider))
}

func makePartialOAuthKey(owner *int) string {
	return oauthPrefix + ownerKey(owner) + ":"
}

func encodeID(id int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

func decodeID(val []byte) int64 {
	return int64(binary.BigEndian.Uint64(val))
}
