package isfs

import (
	"bytes"
	"fmt"

	"github.com/isfshax/isfshax/internal/cryptoengine"
	"github.com/isfshax/isfshax/internal/nand"
)

// hmacSeedSize is the SHA-1 block size: the HMAC seed is always hashed as
// one full block ahead of the cluster payload, mirroring
// original_source/stage2/isfs/volume.c's hmac_update(ctx, hmac_seed, SHA_BLOCK_SIZE).
const hmacSeedSize = 64

// hmacDigestSize is the SHA-1 digest size, and therefore the size of each
// of the two redundant HMAC copies stashed across pages 6 and 7 of a
// cluster's spare area.
const hmacDigestSize = 20

// VolumeContext is the mounted state Component C operates against: a NAND
// device plus the key material for one volume. It is the same role the
// teacher's FileSystem plays for a mounted ext4 image, narrowed to the
// single bank/key pair a volume needs.
type VolumeContext struct {
	Name    string
	Device  nand.Device
	Bank    nand.Bank
	Key     [16]byte
	HMACKey [hmacDigestSize]byte

	// clusterBuf is the single decrypted-cluster scratch buffer file
	// reads share, mirroring the source's static per-volume clbuf.
	clusterBuf []byte
}

// readCluster decrypts a single cluster into the volume's shared scratch
// buffer and returns it. Callers must not retain the returned slice past
// their next call into the volume.
func (v *VolumeContext) readCluster(cluster int) ([]byte, Grade, error) {
	if v.clusterBuf == nil {
		v.clusterBuf = make([]byte, nand.ClusterSize)
	}
	grade, err := v.ReadVolume(cluster, 1, flagEncrypted, nil, v.clusterBuf)
	if err != nil {
		return nil, GradeOK, err
	}
	return v.clusterBuf, grade, nil
}

// ReadVolume reads clusterCount clusters starting at startCluster into
// data (len must be clusterCount*ClusterSize), applying AES-CBC decryption
// and/or HMAC verification as flags request.
//
// Grounded on original_source/stage2/isfs/volume.c's isfs_read_volume.
func (v *VolumeContext) ReadVolume(startCluster, clusterCount int, flags uint32, hmacSeed []byte, data []byte) (Grade, error) {
	f := parseVolumeFlags(flags)
	if len(data) != clusterCount*nand.ClusterSize {
		return GradeOK, fmt.Errorf("isfs: ReadVolume: data must be %d bytes, got %d", clusterCount*nand.ClusterSize, len(data))
	}
	if f.hmac && len(hmacSeed) != hmacSeedSize {
		return GradeOK, fmt.Errorf("isfs: ReadVolume: hmac seed must be %d bytes, got %d", hmacSeedSize, len(hmacSeed))
	}

	if err := v.Device.SelectBank(v.Bank); err != nil {
		return GradeOK, fmt.Errorf("isfs: select bank: %w", err)
	}

	grade := GradeOK
	var savedHMACs [2][hmacDigestSize]byte

	for i := 0; i < clusterCount; i++ {
		cluster := startCluster + i
		clusterData := data[i*nand.ClusterSize : (i+1)*nand.ClusterSize]
		clusterStartPage := cluster * nand.ClusterPages

		for p := 0; p < nand.ClusterPages; p++ {
			spare := make([]byte, nand.SpareSize)
			pageData := clusterData[p*nand.PageSize : (p+1)*nand.PageSize]

			readGrade, err := v.Device.ReadPage(clusterStartPage+p, pageData, spare)
			if err != nil {
				return GradeOK, fmt.Errorf("%w: %v", ErrVolumeRead, err)
			}
			if readGrade == nand.ReadCorrected && !grade.worseThan(GradeECCCorrected) {
				grade = GradeECCCorrected
			}

			// page 6 and 7 store the two redundant HMAC copies, split
			// across the tail of each page's spare area.
			if p == 6 {
				copy(savedHMACs[0][:], spare[1:21])
				copy(savedHMACs[1][:12], spare[21:33])
			}
			if p == 7 {
				copy(savedHMACs[1][12:20], spare[1:9])
			}
		}

		if f.encrypted {
			cbc, err := cryptoengine.NewAESCBC(v.Key[:])
			if err != nil {
				return GradeOK, fmt.Errorf("isfs: %w", err)
			}
			cbc.Decrypt(clusterData, clusterData, false)
		}
	}

	if f.hmac {
		digest := v.computeHMAC(hmacSeed, data)
		matched := 0
		if bytes.Equal(savedHMACs[0][:], digest) {
			matched++
		}
		if bytes.Equal(savedHMACs[1][:], digest) {
			matched++
		}
		switch matched {
		case 2:
			// no degradation from the HMAC check itself
		case 1:
			if !grade.worseThan(GradeHMACPartial) {
				grade = GradeHMACPartial
			}
		default:
			return GradeOK, ErrVolumeHMAC
		}
	}

	return grade, nil
}

// WriteVolume programs clusterCount clusters starting at startCluster,
// erasing and rewriting every NAND block the range touches (and
// preserving any of that block's pages that fall outside the range by
// reading them back first).
//
// Grounded on original_source/stage2/isfs/volume.c's isfs_write_volume.
func (v *VolumeContext) WriteVolume(startCluster, clusterCount int, flags uint32, hmacSeed []byte, data []byte) error {
	f := parseVolumeFlags(flags)
	if len(data) != clusterCount*nand.ClusterSize {
		return fmt.Errorf("isfs: WriteVolume: data must be %d bytes, got %d", clusterCount*nand.ClusterSize, len(data))
	}

	if err := v.Device.SelectBank(v.Bank); err != nil {
		return fmt.Errorf("isfs: select bank: %w", err)
	}

	digest := make([]byte, hmacDigestSize)
	if f.hmac {
		digest = v.computeHMAC(hmacSeed, data)
	}

	var cbc cryptoengine.CBC
	if f.encrypted {
		var err error
		cbc, err = cryptoengine.NewAESCBC(v.Key[:])
		if err != nil {
			return fmt.Errorf("isfs: %w", err)
		}
	}

	startPage := startCluster * nand.ClusterPages
	endPage := (startCluster + clusterCount) * nand.ClusterPages
	startBlock := startCluster / nand.BlockClusters
	endBlock := (startCluster + clusterCount + nand.BlockClusters - 1) / nand.BlockClusters

	for b := startBlock; b < endBlock; b++ {
		firstBlockPage := b * nand.BlockPages

		blockData := make([][]byte, nand.BlockPages)
		blockSpare := make([][]byte, nand.BlockPages)

		for p := 0; p < nand.BlockPages; p++ {
			curPage := firstBlockPage + p
			clusterIdx := curPage % nand.ClusterPages

			blockData[p] = make([]byte, nand.PageSize)
			blockSpare[p] = make([]byte, nand.SpareSize)

			if curPage < startPage || curPage >= endPage {
				if _, err := v.Device.ReadPage(curPage, blockData[p], blockSpare[p]); err != nil {
					return fmt.Errorf("%w: %v", ErrVolumeRead, err)
				}
				continue
			}

			switch clusterIdx {
			case 6:
				copy(blockSpare[p][1:21], digest)
				copy(blockSpare[p][21:33], digest)
			case 7:
				copy(blockSpare[p][1:9], digest[12:20])
			}

			srcData := data[(curPage-startPage)*nand.PageSize : (curPage-startPage+1)*nand.PageSize]
			if f.encrypted {
				cbc.Encrypt(blockData[p], srcData, clusterIdx > 0)
			} else {
				copy(blockData[p], srcData)
			}
		}

		if err := v.Device.EraseBlock(b); err != nil {
			return fmt.Errorf("%w: %v", ErrVolumeErase, err)
		}

		var writeErr error
		for p := 0; p < nand.BlockPages; p++ {
			if err := v.Device.WritePage(firstBlockPage+p, blockData[p], blockSpare[p]); err != nil {
				writeErr = fmt.Errorf("%w: %v", ErrVolumeWrite, err)
			}
		}
		if writeErr != nil {
			return writeErr
		}

		if !f.readback {
			continue
		}
		for p := 0; p < nand.BlockPages; p++ {
			gotData := make([]byte, nand.PageSize)
			gotSpare := make([]byte, nand.SpareSize)
			if _, err := v.Device.ReadPage(firstBlockPage+p, gotData, gotSpare); err != nil {
				return fmt.Errorf("%w: %v", ErrVolumeRead, err)
			}
			if !bytes.Equal(blockData[p], gotData) || !bytes.Equal(blockSpare[p][1:33], gotSpare[1:33]) {
				return ErrVolumeReadback
			}
		}
	}

	return nil
}

func (v *VolumeContext) computeHMAC(seed, data []byte) []byte {
	h := cryptoengine.NewHMACSHA1()
	h.Init(v.HMACKey[:])
	h.Update(seed)
	h.Update(data)
	return h.Final()
}
