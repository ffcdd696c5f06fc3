package tile

// ReadAll collects every tile of the tileset into a map.
func ReadAll(r Visitor) (map[ID][]byte, error) {
	tiles := make(map[ID][]byte)
	err := r.VisitTiles(func(tileID ID, tileData []byte) error {
		tiles[tileID] = tileData
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tiles, nil
}

// Copy writes every tile of src into dst and returns the number of tiles written.
// The optional onTile callback runs after each write. dst is not finalized.
func Copy(dst Writer, src Visitor, onTile func(ID)) (int, error) {
	n := 0
	err := src.VisitTiles(func(tileID ID, tileData []byte) error {
		if err := dst.WriteTile(tileID, tileData); err != nil {
			return err
		}
		n++
		if onTile != nil {
			onTile(tileID)
		}
		return nil
	})
	return n, err
}
