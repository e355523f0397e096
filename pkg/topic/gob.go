package topic

// GobEncode and GobDecode let a Key cross process boundaries (the TCP
// adapter, pkg/sync) using only its display-name form, matching the
// wire-safety rule in §4.1: IDs are never serialized, only names, and
// sections are regenerated (and re-hashed) on the receiving side.
func (k Key) GobEncode() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Key) GobDecode(data []byte) error {
	*k = Parse(string(data))
	return nil
}
